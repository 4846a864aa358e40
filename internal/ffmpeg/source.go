package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"gazer/internal/camera"
	"gazer/internal/capture"
	"gazer/internal/vision"
)

// Source は ffmpeg の標準出力から bgr24 フレームを読み出すソース
type Source struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer
	info   capture.SourceInfo

	closeOnce sync.Once
}

// Open はソースを開く。ctx がキャンセルされると ffmpeg は終了し、Next はストリーム終端を返す
func Open(ctx context.Context, opts Options, target capture.Target) (*Source, error) {
	if target.IsFile() {
		if _, err := os.Stat(target.Path); err != nil {
			return nil, fmt.Errorf("%w: %v", capture.ErrSourceUnavailable, err)
		}
	}

	in, err := inputArgs(target, runtime.GOOS, opts.VideoSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", capture.ErrSourceUnavailable, err)
	}

	info, err := Probe(ctx, opts.FFprobePath, in)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", capture.ErrSourceUnavailable, target, err)
	}

	cmd := exec.CommandContext(ctx, opts.FFmpegPath, sourceArgs(in)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdoutパイプの作成に失敗: %v", capture.ErrSourceUnavailable, err)
	}
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: ffmpegの起動に失敗: %v", capture.ErrSourceUnavailable, err)
	}

	return &Source{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		info:   info,
	}, nil
}

// Info はフレームサイズとfpsを返す
func (s *Source) Info() capture.SourceInfo {
	return s.info
}

// Next は次のフレームを読み出す
// EOF や途中で切れた読み取りは capture.ErrEndOfStream として返す
func (s *Source) Next(dst *vision.Frame) error {
	dst.Resize(s.info.Width, s.info.Height)
	dst.Order = vision.OrderBGR

	if _, err := io.ReadFull(s.stdout, dst.Data); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return capture.ErrEndOfStream
		}
		return fmt.Errorf("%w: %v", capture.ErrEndOfStream, err)
	}
	return nil
}

// Close は ffmpeg を終了させる
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdout.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.cmd.Wait() // Kill 後の終了ステータスは無視
	})
	return nil
}

// Stderr は ffmpeg の標準エラー出力の末尾を返す
func (s *Source) Stderr() string {
	return s.stderr.String()
}

// inputArgs は取り込み元に応じた ffmpeg/ffprobe の入力引数を返す
func inputArgs(target capture.Target, goos, videoSize string) ([]string, error) {
	if target.IsFile() {
		return []string{"-i", target.Path}, nil
	}

	var args []string
	switch goos {
	case "linux":
		args = []string{"-f", "v4l2"}
		if videoSize != "" {
			args = append(args, "-video_size", videoSize)
		}
		args = append(args, "-i", camera.DevicePath(target.Camera))
	case "darwin":
		args = []string{"-f", "avfoundation"}
		if videoSize != "" {
			args = append(args, "-video_size", videoSize)
		}
		args = append(args, "-i", strconv.Itoa(target.Camera))
	default:
		return nil, fmt.Errorf("カメラ入力に対応していないOS: %s", goos)
	}
	return args, nil
}

// sourceArgs は生フレームを標準出力へ書き出す ffmpeg 引数を組み立てる
func sourceArgs(in []string) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	args = append(args, in...)
	return append(args,
		"-an",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-",
	)
}
