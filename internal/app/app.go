// Package app はパイプラインとHTTPサーバーを組み立てて起動する
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gazer/internal/backends"
	"gazer/internal/camera"
	"gazer/internal/capture"
	"gazer/internal/config"
	"gazer/internal/ffmpeg"
	"gazer/internal/server"
)

// NewLogger はログレベル名 (debug, info, warn, error) からロガーを作成する
func NewLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
			return nil, fmt.Errorf("無効なログレベル: %q", level)
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// BackendOptions は設定からバックエンド用のオプションを作る
func BackendOptions(cfg *config.Config) backends.Options {
	return backends.Options{
		FFmpeg: ffmpeg.Options{
			FFmpegPath:  cfg.FFmpeg.Path,
			FFprobePath: cfg.FFmpeg.ProbePath,
			VideoSize:   cfg.FFmpeg.VideoSize,
			Quality:     cfg.FFmpeg.Quality,
		},
	}
}

// NewWorker は設定の取り込み元とバックエンドでワーカーを作成する（未開始）
func NewWorker(cfg *config.Config, logger *slog.Logger) (*capture.Worker, error) {
	target, err := capture.ParseTarget(cfg.Source.Target)
	if err != nil {
		return nil, err
	}

	factory := backends.NewFactory(BackendOptions(cfg))
	backend, err := factory.Create(cfg.Source.Backend)
	if err != nil {
		return nil, err
	}

	return capture.NewWorker(cfg.Capture, target, backend, logger), nil
}

// Run はワーカーを開始し、HTTPサーバーが停止するまでブロックする
// 取り込みが終端に達してもサーバーは動き続ける
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	worker, err := NewWorker(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("キャプチャの開始に失敗: %w", err)
	}
	defer func() {
		worker.Stop()
		cancel()
		if err := worker.Wait(); err != nil {
			logger.Warn("キャプチャがエラーで終了しました", "error", err)
		}
	}()

	srv := server.New(cfg, worker, camera.NewLinuxDiscovery(), logger)
	return srv.Start(ctx)
}
