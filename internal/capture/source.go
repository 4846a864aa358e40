package capture

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gazer/internal/vision"
)

// Target はカメラ番号またはファイルパスで取り込み元を指定する
// Path が空でなければファイル、空ならカメラ番号として扱う
type Target struct {
	Camera int    `json:"camera"`
	Path   string `json:"path,omitempty"`
}

// IsFile はファイルソースかどうかを返す
func (t Target) IsFile() bool {
	return t.Path != ""
}

// String は表示用の文字列を返す
func (t Target) String() string {
	if t.IsFile() {
		return t.Path
	}
	return fmt.Sprintf("camera:%d", t.Camera)
}

// ParseTarget は "0" のような整数をカメラ番号、それ以外をファイルパスとして解釈する
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("取り込み元が指定されていません")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return Target{}, fmt.Errorf("無効なカメラ番号: %d", n)
		}
		return Target{Camera: n}, nil
	}
	return Target{Path: s}, nil
}

// SourceInfo はソースの基本情報
type SourceInfo struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"` // ソース固有のfps（不明なら0）
}

// Source は逐次的にフレームを生成するソース
type Source interface {
	// Info はフレームサイズとfpsを返す
	Info() SourceInfo

	// Next は次のフレームを BGR 順で dst に書き込む
	// 終端や不正な読み取りでは ErrEndOfStream を返す
	Next(dst *vision.Frame) error

	// Close はデバイス/ファイルを解放する
	Close() error
}

// SourceOpener は Target からソースを開く
// 開けない場合は ErrSourceUnavailable をラップして返す
type SourceOpener func(ctx context.Context, target Target) (Source, error)
