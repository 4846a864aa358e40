package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"

	"gazer/internal/capture"
)

// NewBackend は ffmpeg バックエンドを作成する
// ffmpeg と ffprobe が見つからない場合はエラーを返す
func NewBackend(opts Options) (capture.Backend, error) {
	for _, bin := range []string{opts.FFmpegPath, opts.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return capture.Backend{}, fmt.Errorf("%s が見つかりません: %w", bin, err)
		}
	}

	return capture.Backend{
		Name: Name,
		OpenSource: func(ctx context.Context, target capture.Target) (capture.Source, error) {
			s, err := Open(ctx, opts, target)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		NewBackground: capture.NativeBackground,
		NewEncoder: func(path string, fps float64, width, height int) (capture.VideoEncoder, error) {
			e, err := OpenEncoder(opts, path, fps, width, height)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
	}, nil
}
