package capture

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gazer/internal/vision"
)

func TestFrameSlot_LatestWins(t *testing.T) {
	var s FrameSlot
	_, ok := s.Latest()
	assert.False(t, ok)

	for i := 1; i <= 3; i++ {
		f := vision.NewFrame(4, 4, vision.OrderRGB)
		f.Seq = uint64(i)
		s.Publish(f)
	}

	got, ok := s.Latest()
	require.True(t, ok)
	assert.EqualValues(t, 3, got.Seq)

	// 返り値を書き換えてもスロットには影響しない
	got.Data[0] = 42
	again, _ := s.Latest()
	assert.Equal(t, byte(0), again.Data[0])
}

func TestFrameSlot_NoTornReads(t *testing.T) {
	var s FrameSlot
	sizes := [][2]int{{4, 4}, {16, 9}, {32, 24}, {7, 3}}

	const writes = 2000
	const readers = 4

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			sz := sizes[i%len(sizes)]
			f := vision.NewFrame(sz[0], sz[1], vision.OrderRGB)
			v := byte(i)
			for j := range f.Data {
				f.Data[j] = v
			}
			f.Seq = uint64(i)
			s.Publish(f)
		}
	}()

	errs := make(chan string, readers)
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := &vision.Frame{}
			for i := 0; i < writes; i++ {
				if !s.LatestInto(buf) {
					continue
				}
				if !buf.Valid() {
					errs <- "バイト長がサイズと一致しない"
					return
				}
				want := byte(buf.Seq)
				for _, b := range buf.Data {
					if b != want {
						errs <- "別フレームの画素が混在している"
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}
