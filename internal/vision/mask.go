package vision

import (
	"image"

	"github.com/disintegration/gift"
)

// 前景マスクの値
const (
	MaskBackground uint8 = 0
	MaskShadow     uint8 = 127
	MaskForeground uint8 = 255
)

// Mask は1チャンネル8bitの前景マスク
type Mask struct {
	Width  int
	Height int
	Data   []uint8
}

// NewMask は指定サイズのマスクを作成する
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Data: make([]uint8, width*height)}
}

// Resize はバッファを指定サイズに合わせる
func (m *Mask) Resize(width, height int) {
	m.Width = width
	m.Height = height
	n := width * height
	if cap(m.Data) < n {
		m.Data = make([]uint8, n)
		return
	}
	m.Data = m.Data[:n]
}

// Empty はマスクが未設定かを返す
func (m *Mask) Empty() bool {
	return m == nil || m.Width == 0 || m.Height == 0 || len(m.Data) != m.Width*m.Height
}

// At は (x, y) の値を返す
func (m *Mask) At(x, y int) uint8 {
	return m.Data[y*m.Width+x]
}

// Set は (x, y) の値を設定する
func (m *Mask) Set(x, y int, v uint8) {
	m.Data[y*m.Width+x] = v
}

// Count は非ゼロ画素数を返す
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

// Gray はマスクのバッファを共有する *image.Gray を返す
func (m *Mask) Gray() *image.Gray {
	return &image.Gray{
		Pix:    m.Data,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// apply はフィルタ列を適用して結果をマスクに書き戻す
func (m *Mask) apply(g *gift.GIFT) {
	if m.Empty() || len(g.Filters) == 0 {
		return
	}
	dst := image.NewGray(g.Bounds(m.Gray().Bounds()))
	g.Draw(dst, m.Gray())
	copy(m.Data, dst.Pix)
}

// Threshold は thresh を超える画素を 255、それ以外を 0 にする
func (m *Mask) Threshold(thresh uint8) {
	// gift の閾値は輝度の百分率。整数の境界に誤差が乗らないよう0.5だけずらす
	pct := (float32(thresh) + 0.5) / 255 * 100
	m.apply(gift.New(gift.Threshold(pct)))
}

// Erode は size×size の矩形カーネルで収縮する
// 画像外は端の画素で埋めるため、判定に影響しない
func (m *Mask) Erode(size, iterations int) {
	m.apply(morphology(size, iterations, gift.Minimum))
}

// Dilate は size×size の矩形カーネルで膨張する
func (m *Mask) Dilate(size, iterations int) {
	m.apply(morphology(size, iterations, gift.Maximum))
}

func morphology(size, iterations int, filter func(ksize int, disk bool) gift.Filter) *gift.GIFT {
	g := gift.New()
	if size <= 1 {
		return g
	}
	for i := 0; i < iterations; i++ {
		g.Add(filter(size, false))
	}
	return g
}
