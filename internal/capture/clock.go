package capture

import "time"

// Clock は時刻取得を抽象化する（テストで差し替える）
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock は time パッケージによる実装
type RealClock struct{}

// Now は現在時刻を返す
func (RealClock) Now() time.Time { return time.Now() }

// Since は t からの経過時間を返す
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }
