package vision

import (
	"fmt"
	"image/jpeg"
	"io"

	"github.com/disintegration/imaging"
)

// EncodeJPEG はフレームをJPEGとして書き出す（ストリーミング配信用）
func EncodeJPEG(w io.Writer, f *Frame, quality int) error {
	if !f.Valid() {
		return fmt.Errorf("不正なフレーム: %dx%d", f.Width, f.Height)
	}
	if err := jpeg.Encode(w, f.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return fmt.Errorf("JPEGエンコードに失敗: %w", err)
	}
	return nil
}

// SaveJPEG はフレームをJPEGファイルとして保存する
func SaveJPEG(path string, f *Frame, quality int) error {
	if !f.Valid() {
		return fmt.Errorf("不正なフレーム: %dx%d", f.Width, f.Height)
	}
	if err := imaging.Save(f.Image(), path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("JPEGの保存に失敗 (%s): %w", path, err)
	}
	return nil
}
