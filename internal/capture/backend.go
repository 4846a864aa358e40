package capture

import (
	"fmt"
	"sort"
	"sync"

	"gazer/internal/vision"
)

// Backend はソース・背景モデル・動画エンコーダの実装一式
type Backend struct {
	Name          string
	OpenSource    SourceOpener
	NewBackground BackgroundFactory // nil の場合は NativeBackground を使う
	NewEncoder    EncoderFactory
	FindContours  ContourFinder // nil の場合は vision.FindContours を使う
}

// BackendFactory は名前からバックエンドを作成するファクトリー
type BackendFactory struct {
	mu       sync.RWMutex
	creators map[string]func() (Backend, error)
}

// NewBackendFactory は空のファクトリーを作成する
func NewBackendFactory() *BackendFactory {
	return &BackendFactory{creators: make(map[string]func() (Backend, error))}
}

// Register はバックエンドの作成関数を登録する
func (f *BackendFactory) Register(name string, creator func() (Backend, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = creator
}

// Create はバックエンドを作成する
func (f *BackendFactory) Create(name string) (Backend, error) {
	f.mu.RLock()
	creator, exists := f.creators[name]
	f.mu.RUnlock()
	if !exists {
		return Backend{}, fmt.Errorf("サポートされていないバックエンド: %s (利用可能: %v)", name, f.Names())
	}

	b, err := creator()
	if err != nil {
		return Backend{}, fmt.Errorf("バックエンド %s の初期化に失敗: %w", name, err)
	}
	if b.OpenSource == nil || b.NewEncoder == nil {
		return Backend{}, fmt.Errorf("バックエンド %s の実装が不完全です", name)
	}
	if b.NewBackground == nil {
		b.NewBackground = NativeBackground
	}
	if b.FindContours == nil {
		b.FindContours = vision.FindContours
	}
	return b, nil
}

// Names は登録済みのバックエンド名を返す
func (f *BackendFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.creators))
	for name := range f.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
