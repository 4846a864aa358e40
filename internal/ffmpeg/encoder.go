package ffmpeg

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"

	"gazer/internal/vision"
)

// Encoder は生フレームを ffmpeg の標準入力へ送り MJPG/AVI に書き出す
type Encoder struct {
	path   string
	width  int
	height int
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	buf    []byte // RGB→BGR 変換用
	closed bool
}

// OpenEncoder は path に動画ファイルを作成する
func OpenEncoder(opts Options, path string, fps float64, width, height int) (*Encoder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("不正なフレームサイズ: %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("不正なfps: %v", fps)
	}

	// シャットダウン時にも最後まで書き出させるため ctx には紐付けない
	cmd := exec.Command(opts.FFmpegPath, encoderArgs(path, fps, width, height, opts.Quality)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdinパイプの作成に失敗: %w", err)
	}
	stderr := &tailBuffer{}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpegの起動に失敗: %w", err)
	}

	return &Encoder{
		path:   path,
		width:  width,
		height: height,
		cmd:    cmd,
		stdin:  stdin,
		stderr: stderr,
	}, nil
}

// WriteFrame はフレームを1枚追記する
func (e *Encoder) WriteFrame(f *vision.Frame) error {
	if e.closed {
		return fmt.Errorf("エンコーダは既に閉じられています: %s", e.path)
	}
	if f.Width != e.width || f.Height != e.height || !f.Valid() {
		return fmt.Errorf("フレームサイズが一致しません: %dx%d (期待値 %dx%d)", f.Width, f.Height, e.width, e.height)
	}

	data := f.Data
	if f.Order != vision.OrderBGR {
		if cap(e.buf) < len(f.Data) {
			e.buf = make([]byte, len(f.Data))
		}
		e.buf = e.buf[:len(f.Data)]
		for i := 0; i < len(f.Data); i += vision.Channels {
			e.buf[i], e.buf[i+1], e.buf[i+2] = f.Data[i+2], f.Data[i+1], f.Data[i]
		}
		data = e.buf
	}

	if _, err := e.stdin.Write(data); err != nil {
		return fmt.Errorf("ffmpegへの書き込みに失敗: %w (stderr: %s)", err, e.stderr.String())
	}
	return nil
}

// Close は入力を閉じ、ffmpeg がファイルを書き終えるのを待つ
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	_ = e.stdin.Close()
	if err := e.cmd.Wait(); err != nil {
		return fmt.Errorf("動画の書き出しに失敗 (%s): %w (stderr: %s)", e.path, err, e.stderr.String())
	}
	return nil
}

// encoderArgs は標準入力の bgr24 を MJPG/AVI に変換する ffmpeg 引数を組み立てる
func encoderArgs(path string, fps float64, width, height, quality int) []string {
	if quality <= 0 {
		quality = 3
	}
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-r", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "-",
		"-an",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(quality),
		"-pix_fmt", "yuvj420p",
		"-f", "avi",
		path,
	}
}
