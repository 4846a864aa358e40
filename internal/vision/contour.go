package vision

import (
	"image"
	"image/color"
)

// Contour はマスク内の1つの連結前景領域
type Contour struct {
	Bounds image.Rectangle // 外接矩形
	Area   int             // 画素数
}

// FindContours は8近傍の連結成分を走査し、各領域の外接矩形を返す
// 戻り値は走査順（上から下、左から右）で安定している
func FindContours(m *Mask) []Contour {
	if m.Empty() {
		return nil
	}

	visited := make([]bool, len(m.Data))
	var contours []Contour
	stack := make([]int, 0, 64)

	for start, v := range m.Data {
		if v == 0 || visited[start] {
			continue
		}

		visited[start] = true
		stack = append(stack[:0], start)
		sx, sy := start%m.Width, start/m.Width
		minX, minY, maxX, maxY := sx, sy, sx, sy
		area := 0

		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++

			x, y := idx%m.Width, idx/m.Width
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}

			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= m.Height {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= m.Width || (dx == 0 && dy == 0) {
						continue
					}
					n := ny*m.Width + nx
					if m.Data[n] != 0 && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}

		contours = append(contours, Contour{
			Bounds: image.Rect(minX, minY, maxX+1, maxY+1),
			Area:   area,
		})
	}

	return contours
}

// DrawRect は矩形の枠線を thickness 画素でフレームに描く
// 画像外にはみ出した部分は切り捨てる
func DrawRect(f *Frame, r image.Rectangle, c color.RGBA, thickness int) {
	r = r.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if r.Empty() {
		return
	}
	if thickness < 1 {
		thickness = 1
	}

	for t := 0; t < thickness; t++ {
		top, bottom := r.Min.Y+t, r.Max.Y-1-t
		left, right := r.Min.X+t, r.Max.X-1-t
		if top > bottom || left > right {
			return
		}
		for x := left; x <= right; x++ {
			f.SetRGB(x, top, c.R, c.G, c.B)
			f.SetRGB(x, bottom, c.R, c.G, c.B)
		}
		for y := top; y <= bottom; y++ {
			f.SetRGB(left, y, c.R, c.G, c.B)
			f.SetRGB(right, y, c.R, c.G, c.B)
		}
	}
}
