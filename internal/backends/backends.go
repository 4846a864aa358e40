// Package backends はビルドに含まれるキャプチャバックエンドを登録する
package backends

import (
	"gazer/internal/capture"
	"gazer/internal/ffmpeg"
)

// Options はバックエンド共通の設定
type Options struct {
	FFmpeg ffmpeg.Options
}

// registrars はビルドタグで追加されるバックエンド
var registrars []func(f *capture.BackendFactory, opts Options)

// NewFactory は利用可能なバックエンドを登録したファクトリーを返す
func NewFactory(opts Options) *capture.BackendFactory {
	f := capture.NewBackendFactory()
	f.Register(ffmpeg.Name, func() (capture.Backend, error) {
		return ffmpeg.NewBackend(opts.FFmpeg)
	})
	for _, register := range registrars {
		register(f, opts)
	}
	return f
}
