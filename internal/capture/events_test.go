package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHub_DropsOldestWhenFull(t *testing.T) {
	h := newEventHub()
	ch, cancel := h.Subscribe(2)
	defer cancel()

	for i := 1; i <= 5; i++ {
		h.Publish(Event{Kind: EventFrameCaptured, Seq: uint64(i)})
	}

	got := []uint64{(<-ch).Seq, (<-ch).Seq}
	assert.Equal(t, []uint64{4, 5}, got)
}

func TestEventHub_CloseDeliversFinalEvent(t *testing.T) {
	h := newEventHub()
	ch, cancel := h.Subscribe(1)

	h.Publish(Event{Kind: EventFrameCaptured, Seq: 1})
	h.Close(Event{Kind: EventStopped})
	h.Close(Event{Kind: EventStopped}) // 二重クローズは無視

	ev, ok := <-ch
	require.True(t, ok)
	assert.Equal(t, EventStopped, ev.Kind, "最後のイベントはバッファを上書きしてでも届く")

	_, ok = <-ch
	assert.False(t, ok)

	cancel() // クローズ後のキャンセルは安全

	late, _ := h.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok, "停止後の購読は閉じたチャネルを返す")
}

func TestEventHub_Cancel(t *testing.T) {
	h := newEventHub()
	ch, cancel := h.Subscribe(4)
	cancel()
	cancel()

	h.Publish(Event{Kind: EventFrameCaptured})
	_, ok := <-ch
	assert.False(t, ok)
}
