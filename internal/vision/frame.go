package vision

import (
	"fmt"
	"image"
	"image/color"
	"time"
)

// Channels は1画素あたりのチャンネル数
const Channels = 3

// PixelOrder はフレーム内の色チャンネルの並び順
type PixelOrder int

const (
	// OrderBGR はOpenCV/ffmpeg bgr24 と同じ並び
	OrderBGR PixelOrder = iota
	// OrderRGB は表示用の並び
	OrderRGB
)

// String は並び順の表示名を返す
func (o PixelOrder) String() string {
	switch o {
	case OrderBGR:
		return "BGR"
	case OrderRGB:
		return "RGB"
	default:
		return fmt.Sprintf("PixelOrder(%d)", int(o))
	}
}

// Frame は rows×cols の3チャンネル8bitフレーム
type Frame struct {
	Width     int        // 列数
	Height    int        // 行数
	Order     PixelOrder // チャンネル順
	Data      []byte     // 行優先の画素データ (Width*Height*3)
	Seq       uint64     // ワーカーが付与する連番
	Timestamp time.Time  // 取得時刻
}

// NewFrame は指定サイズの黒フレームを作成する
func NewFrame(width, height int, order PixelOrder) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Order:  order,
		Data:   make([]byte, width*height*Channels),
	}
}

// Size は期待されるバイト長を返す
func (f *Frame) Size() int {
	return f.Width * f.Height * Channels
}

// Valid はフレームが空でなく、バイト長が宣言サイズと一致するかを返す
func (f *Frame) Valid() bool {
	return f != nil && f.Width > 0 && f.Height > 0 && len(f.Data) == f.Size()
}

// Resize はバッファを指定サイズに合わせる（既存容量は再利用する）
func (f *Frame) Resize(width, height int) {
	f.Width = width
	f.Height = height
	n := width * height * Channels
	if cap(f.Data) < n {
		f.Data = make([]byte, n)
		return
	}
	f.Data = f.Data[:n]
}

// CopyFrom は src の内容をこのフレームへ複製する
func (f *Frame) CopyFrom(src *Frame) {
	f.Resize(src.Width, src.Height)
	copy(f.Data, src.Data)
	f.Order = src.Order
	f.Seq = src.Seq
	f.Timestamp = src.Timestamp
}

// Clone はフレームの深いコピーを返す
func (f *Frame) Clone() *Frame {
	c := &Frame{}
	c.CopyFrom(f)
	return c
}

// ConvertTo はチャンネル順をその場で変換する
func (f *Frame) ConvertTo(order PixelOrder) {
	if f.Order == order {
		return
	}
	for i := 0; i+2 < len(f.Data); i += Channels {
		f.Data[i], f.Data[i+2] = f.Data[i+2], f.Data[i]
	}
	f.Order = order
}

// RGBAt は (x, y) の画素を R, G, B の順で返す
func (f *Frame) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	if f.Order == OrderBGR {
		return f.Data[i+2], f.Data[i+1], f.Data[i]
	}
	return f.Data[i], f.Data[i+1], f.Data[i+2]
}

// SetRGB は (x, y) の画素を設定する
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * Channels
	if f.Order == OrderBGR {
		f.Data[i], f.Data[i+1], f.Data[i+2] = b, g, r
		return
	}
	f.Data[i], f.Data[i+1], f.Data[i+2] = r, g, b
}

// Fill はフレーム全体を単色で塗る
func (f *Frame) Fill(c color.RGBA) {
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			f.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
}

// Image は image.Image に変換する（JPEGエンコード用）
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGBAt(x, y)
			o := img.PixOffset(x, y)
			img.Pix[o+0] = r
			img.Pix[o+1] = g
			img.Pix[o+2] = b
			img.Pix[o+3] = 0xff
		}
	}
	return img
}

// FromImage は image.Image から指定順のフレームを作成する
func FromImage(img image.Image, order PixelOrder) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), order)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			f.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
	return f
}
