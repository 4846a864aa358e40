package capture

import (
	"sync"

	"gazer/internal/vision"
)

// FrameSlot は最新フレーム1枚だけを保持する同期セル
// 書き込み・読み出しともロック内でコピーするため、読み手が途中状態を見ることはない
type FrameSlot struct {
	mu    sync.Mutex
	frame vision.Frame
	ok    bool
}

// Publish はフレームをスロットへコピーする（前のフレームは上書き）
func (s *FrameSlot) Publish(f *vision.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame.CopyFrom(f)
	s.ok = true
}

// Latest は最新フレームのコピーを返す
func (s *FrameSlot) Latest() (*vision.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ok {
		return nil, false
	}
	return s.frame.Clone(), true
}

// LatestInto は最新フレームを dst にコピーする（バッファ再利用用）
func (s *FrameSlot) LatestInto(dst *vision.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ok {
		return false
	}
	dst.CopyFrom(&s.frame)
	return true
}
