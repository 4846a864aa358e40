package capture

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"gazer/internal/vision"
)

// fakeClock は手動で進める時計
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSource は単色フレームを count 枚返すソース。count < 0 なら無限
// badAt 枚目はバッファ長の合わないフレームを返す
type fakeSource struct {
	info     SourceInfo
	color    color.RGBA
	count    int
	badAt    int
	clock    *fakeClock
	interval time.Duration

	read   atomic.Int64
	closed atomic.Bool
}

func newFakeSource(w, h, count int) *fakeSource {
	return &fakeSource{
		info:  SourceInfo{Width: w, Height: h},
		color: color.RGBA{R: 200, G: 100, B: 50, A: 255},
		count: count,
	}
}

func (s *fakeSource) Info() SourceInfo { return s.info }

func (s *fakeSource) Next(dst *vision.Frame) error {
	n := s.read.Add(1)
	if s.count >= 0 && n > int64(s.count) {
		return ErrEndOfStream
	}
	if s.clock != nil {
		s.clock.Advance(s.interval)
	}
	dst.Resize(s.info.Width, s.info.Height)
	dst.Order = vision.OrderBGR
	dst.Fill(s.color)
	if s.badAt > 0 && n == int64(s.badAt) {
		dst.Data = dst.Data[:len(dst.Data)-1]
	}
	return nil
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeEncoder は書き込まれたフレーム数を数える
type fakeEncoder struct {
	path   string
	fps    float64
	frames int
	closed bool
	err    error
}

func (e *fakeEncoder) WriteFrame(*vision.Frame) error {
	if e.err != nil {
		return e.err
	}
	e.frames++
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	return nil
}

// encoderRecorder は作成したエンコーダを保持する
type encoderRecorder struct {
	mu       sync.Mutex
	encoders []*fakeEncoder
	openErr  error
}

func (r *encoderRecorder) factory(path string, fps float64, _, _ int) (VideoEncoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return nil, r.openErr
	}
	enc := &fakeEncoder{path: path, fps: fps}
	r.encoders = append(r.encoders, enc)
	return enc, nil
}

func (r *encoderRecorder) list() []*fakeEncoder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeEncoder(nil), r.encoders...)
}

// scriptedBackground は motion(seq) が true のフレームで中央に前景ブロックを置く
type scriptedBackground struct {
	motion func(seq uint64) bool
	closed bool
}

func (b *scriptedBackground) Apply(f *vision.Frame, mask *vision.Mask) error {
	if !f.Valid() {
		return errors.New("invalid frame")
	}
	mask.Resize(f.Width, f.Height)
	for i := range mask.Data {
		mask.Data[i] = vision.MaskBackground
	}
	if b.motion(f.Seq) {
		for y := f.Height / 4; y < f.Height*3/4; y++ {
			for x := f.Width / 4; x < f.Width*3/4; x++ {
				mask.Set(x, y, vision.MaskForeground)
			}
		}
	}
	return nil
}

func (b *scriptedBackground) Close() error {
	b.closed = true
	return nil
}

func testBackend(src Source, enc *encoderRecorder, bg BackgroundModel) Backend {
	b := Backend{
		Name: "fake",
		OpenSource: func(context.Context, Target) (Source, error) {
			return src, nil
		},
		NewEncoder: enc.factory,
	}
	if bg != nil {
		b.NewBackground = func(MotionConfig) (BackgroundModel, error) { return bg, nil }
	}
	return b
}
