package vision

import "fmt"

// 分散の初期値・下限・上限（OpenCV MOG2 の既定値に合わせる）
const (
	varianceInit = 15.0
	varianceMin  = 4.0
	varianceMax  = 5 * varianceInit

	// 影判定: 背景色をこの比率まで暗くしたものは影とみなす
	shadowTau = 0.5
)

// GaussianBackground は画素ごとに単一ガウス分布を保持する背景モデル
//
// 各画素の色平均と等方分散を指数移動平均で更新し、
// 平均からの二乗距離が varThreshold×分散 を超える画素を前景とする。
type GaussianBackground struct {
	history       int
	varThreshold  float64
	detectShadows bool

	width, height int
	frames        int
	mean          []float32 // 画素×3
	variance      []float32 // 画素
}

// NewGaussianBackground は新しい背景モデルを作成する
func NewGaussianBackground(history int, varThreshold float64, detectShadows bool) *GaussianBackground {
	if history < 1 {
		history = 1
	}
	return &GaussianBackground{
		history:       history,
		varThreshold:  varThreshold,
		detectShadows: detectShadows,
	}
}

// Apply はフレームをモデルに取り込み、前景マスクを書き出す
// マスク値は 0（背景）、127（影）、255（前景）
func (g *GaussianBackground) Apply(f *Frame, mask *Mask) error {
	if !f.Valid() {
		return fmt.Errorf("不正なフレーム: %dx%d (%dバイト)", f.Width, f.Height, len(f.Data))
	}
	mask.Resize(f.Width, f.Height)

	if g.width != f.Width || g.height != f.Height || g.mean == nil {
		g.reset(f)
		for i := range mask.Data {
			mask.Data[i] = MaskBackground
		}
		return nil
	}

	g.frames++
	n := g.frames
	if n > g.history {
		n = g.history
	}
	alpha := float32(1.0 / float64(n))

	for p := 0; p < f.Width*f.Height; p++ {
		px := f.Data[p*Channels : p*Channels+Channels]
		mu := g.mean[p*Channels : p*Channels+Channels]
		v := g.variance[p]

		var d [Channels]float32
		var dist2 float32
		for c := 0; c < Channels; c++ {
			d[c] = float32(px[c]) - mu[c]
			dist2 += d[c] * d[c]
		}

		thresh := float32(g.varThreshold) * v
		switch {
		case dist2 <= thresh:
			mask.Data[p] = MaskBackground
		case g.detectShadows && g.isShadow(px, mu, v):
			mask.Data[p] = MaskShadow
		default:
			mask.Data[p] = MaskForeground
		}

		for c := 0; c < Channels; c++ {
			mu[c] += alpha * d[c]
		}
		v += alpha * (dist2/Channels - v)
		if v < varianceMin {
			v = varianceMin
		} else if v > varianceMax {
			v = varianceMax
		}
		g.variance[p] = v
	}

	return nil
}

// isShadow は画素が背景色を暗くしたものかどうかを判定する
func (g *GaussianBackground) isShadow(px []byte, mu []float32, v float32) bool {
	var numerator, denominator float32
	for c := 0; c < Channels; c++ {
		numerator += float32(px[c]) * mu[c]
		denominator += mu[c] * mu[c]
	}
	if denominator == 0 {
		return false
	}
	a := numerator / denominator
	if a < shadowTau || a > 1 {
		return false
	}

	var dist2 float32
	for c := 0; c < Channels; c++ {
		d := float32(px[c]) - a*mu[c]
		dist2 += d * d
	}
	return dist2 < float32(g.varThreshold)*v*a*a
}

// reset は最初のフレームでモデルを初期化する
func (g *GaussianBackground) reset(f *Frame) {
	g.width, g.height = f.Width, f.Height
	g.frames = 1
	g.mean = make([]float32, len(f.Data))
	g.variance = make([]float32, f.Width*f.Height)
	for i, b := range f.Data {
		g.mean[i] = float32(b)
	}
	for i := range g.variance {
		g.variance[i] = varianceInit
	}
}

// Close はモデルを解放する
func (g *GaussianBackground) Close() error {
	g.mean = nil
	g.variance = nil
	return nil
}
