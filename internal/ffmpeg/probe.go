package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"gazer/internal/capture"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

// Probe は ffprobe で最初の映像ストリームのサイズとfpsを取得する
func Probe(ctx context.Context, ffprobePath string, inputArgs []string) (capture.SourceInfo, error) {
	args := []string{"-v", "error", "-select_streams", "v:0", "-show_streams", "-of", "json"}
	args = append(args, inputArgs...)

	cmd := exec.CommandContext(ctx, ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return capture.SourceInfo{}, fmt.Errorf("ffprobeの実行に失敗: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return parseProbe(stdout.Bytes())
}

// parseProbe は ffprobe の JSON 出力を解析する
func parseProbe(data []byte) (capture.SourceInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return capture.SourceInfo{}, fmt.Errorf("ffprobe出力の解析に失敗: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return capture.SourceInfo{}, fmt.Errorf("映像サイズが不明です: %dx%d", s.Width, s.Height)
		}
		fps := parseRate(s.AvgFrameRate)
		if fps == 0 {
			fps = parseRate(s.RFrameRate)
		}
		return capture.SourceInfo{Width: s.Width, Height: s.Height, FPS: fps}, nil
	}
	return capture.SourceInfo{}, fmt.Errorf("映像ストリームが見つかりません")
}

// parseRate は "30000/1001" や "25" 形式のフレームレートを解析する。不明なら0
func parseRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil || n <= 0 {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d <= 0 {
		return 0
	}
	return n / d
}
