package capture

import (
	"fmt"
	"time"

	"gazer/internal/vision"
)

// RateEstimator はループ回数から継続的にfpsを推定する
// 窓が経過するたびに fps = 窓内フレーム数 / 窓の秒数 を再計算してカウンタをリセットする
type RateEstimator struct {
	clock       Clock
	window      time.Duration
	windowStart time.Time
	frames      int
	fps         float64
}

// NewRateEstimator は新しいRateEstimatorを作成する
func NewRateEstimator(clock Clock, window time.Duration) *RateEstimator {
	if window <= 0 {
		window = time.Second
	}
	return &RateEstimator{clock: clock, window: window}
}

// Tick はループ1回分を記録する。推定値を更新した場合は updated が true になる
func (e *RateEstimator) Tick() (fps float64, updated bool) {
	now := e.clock.Now()
	if e.windowStart.IsZero() {
		e.windowStart = now
		return e.fps, false
	}

	e.frames++
	elapsed := now.Sub(e.windowStart)
	if elapsed < e.window {
		return e.fps, false
	}

	e.fps = float64(e.frames) / elapsed.Seconds()
	e.frames = 0
	e.windowStart = now
	return e.fps, true
}

// FPS は直近の推定値を返す（未計測なら0）
func (e *RateEstimator) FPS() float64 {
	return e.fps
}

// Calibrate は n フレームをできるだけ速く読み捨て、fps = n / 経過秒数 を返す
// 読み取ったフレームは公開しない
func Calibrate(clock Clock, src Source, scratch *vision.Frame, n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("無効な計測フレーム数: %d", n)
	}

	start := clock.Now()
	for i := 0; i < n; i++ {
		if err := src.Next(scratch); err != nil {
			return 0, err
		}
	}
	elapsed := clock.Since(start)
	if elapsed <= 0 {
		return 0, fmt.Errorf("計測時間が0です (%dフレーム)", n)
	}

	return float64(n) / elapsed.Seconds(), nil
}
