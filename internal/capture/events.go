package capture

import (
	"sync"
	"time"
)

// EventKind はワーカーが発行するイベントの種類
type EventKind string

// EventKind の定数定義
const (
	EventFrameCaptured   EventKind = "frame_captured"   // 新しいフレームがスロットに公開された
	EventFPSChanged      EventKind = "fps_changed"      // fps計測が完了した
	EventStatusChanged   EventKind = "status_changed"   // fpsと統計値の更新
	EventVideoSaved      EventKind = "video_saved"      // 録画セッションが保存された
	EventMotionStarted   EventKind = "motion_started"   // 動きを検出した
	EventMotionStopped   EventKind = "motion_stopped"   // 動きがなくなった
	EventRecordingFailed EventKind = "recording_failed" // 録画の開始/追記に失敗した
	EventStopped         EventKind = "stopped"          // ループが終了した
)

// Event はワーカーから購読者へ通知されるイベント
type Event struct {
	Kind  EventKind   `json:"kind"`
	Seq   uint64      `json:"seq,omitempty"`
	FPS   float64     `json:"fps,omitempty"`
	Stats *FrameStats `json:"stats,omitempty"`
	Name  string      `json:"name,omitempty"`  // 保存したセッション名
	Error string      `json:"error,omitempty"` // 失敗理由
	Time  time.Time   `json:"time"`
}

// eventHub はイベントを購読者ごとのバッファ付きチャネルへ配送する
// 配送はブロックしない。バッファが満杯なら最も古いイベントを捨てる
type eventHub struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]chan Event)}
}

// Subscribe は購読を開始する。cancel を呼ぶとチャネルが閉じられる
// 停止済みのハブに対しては閉じたチャネルを返す
func (h *eventHub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish はイベントを全購読者へ配送する
func (h *eventHub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs {
		offer(ch, ev)
	}
}

// offer はブロックせずに送信する。満杯なら古いものを1つ捨てて再試行する
func offer(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Close は最後のイベントを配送してから全購読者のチャネルを閉じる
func (h *eventHub) Close(final Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		offer(ch, final)
		close(ch)
		delete(h.subs, id)
	}
}
