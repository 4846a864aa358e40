package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_ConvertTo(t *testing.T) {
	f := NewFrame(2, 1, OrderBGR)
	f.SetRGB(0, 0, 10, 20, 30)
	f.SetRGB(1, 0, 40, 50, 60)

	assert.Equal(t, []byte{30, 20, 10, 60, 50, 40}, f.Data)

	f.ConvertTo(OrderRGB)
	assert.Equal(t, OrderRGB, f.Order)
	assert.Equal(t, []byte{10, 20, 30, 40, 50, 60}, f.Data)

	r, g, b := f.RGBAt(1, 0)
	assert.Equal(t, [3]uint8{40, 50, 60}, [3]uint8{r, g, b})

	// 同じ順への変換は何もしない
	f.ConvertTo(OrderRGB)
	assert.Equal(t, []byte{10, 20, 30, 40, 50, 60}, f.Data)
}

func TestFrame_ValidAndClone(t *testing.T) {
	f := NewFrame(4, 3, OrderBGR)
	require.True(t, f.Valid())

	c := f.Clone()
	c.Data[0] = 99
	assert.Equal(t, byte(0), f.Data[0], "クローンは元のバッファを共有しない")

	f.Data = f.Data[:5]
	assert.False(t, f.Valid())
	assert.False(t, (&Frame{}).Valid())

	var nilFrame *Frame
	assert.False(t, nilFrame.Valid())
}

func TestFrame_ImageRoundTrip(t *testing.T) {
	f := NewFrame(3, 2, OrderBGR)
	f.Fill(color.RGBA{R: 200, G: 100, B: 50, A: 255})

	back := FromImage(f.Image(), OrderRGB)
	r, g, b := back.RGBAt(2, 1)
	assert.Equal(t, [3]uint8{200, 100, 50}, [3]uint8{r, g, b})
}

func TestMask_Threshold(t *testing.T) {
	m := NewMask(4, 1)
	copy(m.Data, []uint8{0, 25, 26, 127})
	m.Threshold(25)
	assert.Equal(t, []uint8{0, 0, 255, 255}, m.Data)
}

func TestMask_ErodeRemovesSpeckle(t *testing.T) {
	m := NewMask(20, 20)
	m.Set(3, 3, MaskForeground)
	for y := 8; y < 18; y++ {
		for x := 8; x < 18; x++ {
			m.Set(x, y, MaskForeground)
		}
	}

	m.Erode(9, 1)

	assert.Equal(t, uint8(0), m.At(3, 3), "孤立点は消える")
	assert.Equal(t, 4, m.Count(), "10x10の塊は9x9カーネルで2x2残る")
	assert.Equal(t, MaskForeground, m.At(12, 12))
	assert.Equal(t, MaskForeground, m.At(13, 13))
}

func TestMask_ErodeKeepsBorderRegion(t *testing.T) {
	m := NewMask(10, 10)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			m.Set(x, y, MaskForeground)
		}
	}

	m.Erode(3, 1)

	// 画像外は判定に含めないので、端に接した領域は内側だけが削れる
	assert.Equal(t, MaskForeground, m.At(0, 0))
	assert.Equal(t, MaskForeground, m.At(2, 2))
	assert.Equal(t, uint8(0), m.At(3, 3))
	assert.Equal(t, 9, m.Count())
}

func TestMask_GraySharesBuffer(t *testing.T) {
	m := NewMask(3, 2)
	g := m.Gray()
	g.SetGray(2, 1, color.Gray{Y: MaskForeground})

	assert.Equal(t, MaskForeground, m.At(2, 1))
	assert.Equal(t, image.Rect(0, 0, 3, 2), g.Bounds())
}

func TestMask_ThresholdAtShadowLevel(t *testing.T) {
	m := NewMask(3, 1)
	copy(m.Data, []uint8{MaskShadow, 254, 255})
	m.Threshold(MaskShadow)
	assert.Equal(t, []uint8{0, 255, 255}, m.Data)
}

func TestMask_DilateIterations(t *testing.T) {
	m := NewMask(30, 30)
	m.Set(15, 15, MaskForeground)

	m.Dilate(3, 1)
	assert.Equal(t, 9, m.Count())

	m.Dilate(3, 2)
	assert.Equal(t, 49, m.Count())
}

func TestMask_DilateMergesNearbyRegions(t *testing.T) {
	m := NewMask(40, 10)
	m.Set(10, 5, MaskForeground)
	m.Set(16, 5, MaskForeground)
	require.Len(t, FindContours(m), 2)

	m.Dilate(9, 1)
	assert.Len(t, FindContours(m), 1)
}

func TestFindContours(t *testing.T) {
	m := NewMask(20, 10)
	for y := 1; y < 4; y++ {
		for x := 2; x < 6; x++ {
			m.Set(x, y, MaskForeground)
		}
	}
	// 斜め接続は同じ領域
	m.Set(12, 6, MaskForeground)
	m.Set(13, 7, MaskForeground)

	contours := FindContours(m)
	require.Len(t, contours, 2)
	assert.Equal(t, image.Rect(2, 1, 6, 4), contours[0].Bounds)
	assert.Equal(t, 12, contours[0].Area)
	assert.Equal(t, image.Rect(12, 6, 14, 8), contours[1].Bounds)
	assert.Equal(t, 2, contours[1].Area)

	assert.Empty(t, FindContours(NewMask(5, 5)))
	assert.Nil(t, FindContours(&Mask{}))
}

func TestDrawRect(t *testing.T) {
	f := NewFrame(10, 10, OrderBGR)
	red := color.RGBA{R: 255, A: 255}
	DrawRect(f, image.Rect(2, 2, 6, 6), red, 1)

	r, g, b := f.RGBAt(2, 2)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
	assert.Equal(t, []byte{0, 0, 255}, f.Data[(2*10+5)*3:(2*10+5)*3+3], "BGRでは赤が3バイト目")

	r, _, _ = f.RGBAt(3, 3)
	assert.Equal(t, uint8(0), r, "内部は塗らない")

	// はみ出した矩形は切り捨てる
	DrawRect(f, image.Rect(8, 8, 20, 20), red, 1)
	r, _, _ = f.RGBAt(9, 9)
	assert.Equal(t, uint8(255), r)
}

func uniformFrame(w, h int, c color.RGBA) *Frame {
	f := NewFrame(w, h, OrderBGR)
	f.Fill(c)
	return f
}

func TestGaussianBackground_StaticSceneIsBackground(t *testing.T) {
	bg := NewGaussianBackground(500, 16, true)
	mask := NewMask(0, 0)
	gray := color.RGBA{R: 120, G: 120, B: 120, A: 255}

	for i := 0; i < 10; i++ {
		require.NoError(t, bg.Apply(uniformFrame(16, 16, gray), mask))
		assert.Zero(t, mask.Count(), "frame %d", i)
	}
}

func TestGaussianBackground_ForegroundAndShadow(t *testing.T) {
	bg := NewGaussianBackground(500, 16, true)
	mask := NewMask(0, 0)
	gray := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	for i := 0; i < 5; i++ {
		require.NoError(t, bg.Apply(uniformFrame(16, 16, gray), mask))
	}

	f := uniformFrame(16, 16, gray)
	for y := 4; y < 8; y++ {
		for x := 4; x < 8; x++ {
			f.SetRGB(x, y, 250, 250, 250)
		}
	}
	for y := 10; y < 12; y++ {
		for x := 10; x < 12; x++ {
			f.SetRGB(x, y, 60, 60, 60)
		}
	}
	require.NoError(t, bg.Apply(f, mask))

	assert.Equal(t, MaskForeground, mask.At(5, 5))
	assert.Equal(t, MaskShadow, mask.At(10, 10))
	assert.Equal(t, MaskBackground, mask.At(0, 0))
	assert.Equal(t, 20, mask.Count())
}

func TestGaussianBackground_NoShadowDetection(t *testing.T) {
	bg := NewGaussianBackground(500, 16, false)
	mask := NewMask(0, 0)
	gray := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	for i := 0; i < 5; i++ {
		require.NoError(t, bg.Apply(uniformFrame(8, 8, gray), mask))
	}

	require.NoError(t, bg.Apply(uniformFrame(8, 8, color.RGBA{R: 60, G: 60, B: 60}), mask))
	assert.Equal(t, MaskForeground, mask.At(3, 3))
}

func TestGaussianBackground_RejectsInvalidFrame(t *testing.T) {
	bg := NewGaussianBackground(10, 16, true)
	err := bg.Apply(&Frame{Width: 2, Height: 2, Data: []byte{1}}, NewMask(0, 0))
	assert.Error(t, err)
}

func TestEncodeJPEG(t *testing.T) {
	f := uniformFrame(8, 6, color.RGBA{R: 10, G: 200, B: 10, A: 255})
	var buf bytes.Buffer
	require.NoError(t, EncodeJPEG(&buf, f, 90))

	img, err := jpeg.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())

	assert.Error(t, EncodeJPEG(&buf, &Frame{}, 90))
}

func TestSaveJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.jpg")
	f := uniformFrame(12, 9, color.RGBA{R: 255, A: 255})
	require.NoError(t, SaveJPEG(path, f, 90))

	img, err := imaging.Open(path)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 9, img.Bounds().Dy())
}
