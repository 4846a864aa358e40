//go:build opencv

package opencv

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"gazer/internal/capture"
	"gazer/internal/vision"
)

// Name はバックエンド名
const Name = "opencv"

// NewBackend は OpenCV バックエンドを作成する
func NewBackend() (capture.Backend, error) {
	return capture.Backend{
		Name: Name,
		OpenSource: func(_ context.Context, target capture.Target) (capture.Source, error) {
			s, err := Open(target)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		NewBackground: func(cfg capture.MotionConfig) (capture.BackgroundModel, error) {
			return NewMOG2(cfg), nil
		},
		FindContours: FindContours,
		NewEncoder: func(path string, fps float64, width, height int) (capture.VideoEncoder, error) {
			w, err := OpenWriter(path, fps, width, height)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
	}, nil
}

// Source は cv::VideoCapture によるソース
type Source struct {
	vc        *gocv.VideoCapture
	mat       gocv.Mat
	info      capture.SourceInfo
	closeOnce sync.Once
}

// Open はカメラ番号またはファイルパスを開く
func Open(target capture.Target) (*Source, error) {
	var device interface{} = target.Camera
	if target.IsFile() {
		device = target.Path
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", capture.ErrSourceUnavailable, target, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("%w: %s", capture.ErrSourceUnavailable, target)
	}

	return &Source{
		vc:  vc,
		mat: gocv.NewMat(),
		info: capture.SourceInfo{
			Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FPS:    vc.Get(gocv.VideoCaptureFPS),
		},
	}, nil
}

// Info はフレームサイズとfpsを返す
func (s *Source) Info() capture.SourceInfo {
	return s.info
}

// Next は次のフレームを読み出す。読み取りに失敗したか空のフレームはストリーム終端とする
func (s *Source) Next(dst *vision.Frame) error {
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return capture.ErrEndOfStream
	}
	if s.mat.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: 未対応の画素形式 %v", capture.ErrEndOfStream, s.mat.Type())
	}

	dst.Resize(s.mat.Cols(), s.mat.Rows())
	dst.Order = vision.OrderBGR
	data := s.mat.ToBytes()
	if len(data) != len(dst.Data) {
		return fmt.Errorf("%w: フレーム長 %d (期待値 %d)", capture.ErrEndOfStream, len(data), len(dst.Data))
	}
	copy(dst.Data, data)
	return nil
}

// Close はデバイスを解放する
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		_ = s.mat.Close()
		err = s.vc.Close()
	})
	return err
}

// MOG2 は cv::BackgroundSubtractorMOG2 による背景モデル
type MOG2 struct {
	sub gocv.BackgroundSubtractorMOG2
	fg  gocv.Mat
}

// NewMOG2 は新しいMOG2を作成する
func NewMOG2(cfg capture.MotionConfig) *MOG2 {
	return &MOG2{
		sub: gocv.NewBackgroundSubtractorMOG2WithParams(cfg.History, cfg.VarThreshold, cfg.DetectShadows),
		fg:  gocv.NewMat(),
	}
}

// Apply はフレームでモデルを更新し、前景マスクを書き込む
func (m *MOG2) Apply(f *vision.Frame, mask *vision.Mask) error {
	if !f.Valid() {
		return fmt.Errorf("不正なフレーム: %dx%d", f.Width, f.Height)
	}

	src, err := toBGRMat(f)
	if err != nil {
		return err
	}
	defer src.Close()

	m.sub.Apply(src, &m.fg)

	mask.Resize(f.Width, f.Height)
	data := m.fg.ToBytes()
	if len(data) != len(mask.Data) {
		return fmt.Errorf("マスク長が一致しません: %d (期待値 %d)", len(data), len(mask.Data))
	}
	copy(mask.Data, data)
	return nil
}

// Close はモデルを解放する
func (m *MOG2) Close() error {
	_ = m.fg.Close()
	return m.sub.Close()
}

// Writer は cv::VideoWriter による MJPG 動画ライター
type Writer struct {
	vw *gocv.VideoWriter
}

// OpenWriter は MJPG コーデックで動画ファイルを開く
func OpenWriter(path string, fps float64, width, height int) (*Writer, error) {
	vw, err := gocv.VideoWriterFile(path, "MJPG", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("VideoWriterの作成に失敗: %w", err)
	}
	if !vw.IsOpened() {
		_ = vw.Close()
		return nil, fmt.Errorf("VideoWriterを開けません: %s", path)
	}
	return &Writer{vw: vw}, nil
}

// WriteFrame はフレームを1枚追記する
func (w *Writer) WriteFrame(f *vision.Frame) error {
	mat, err := toBGRMat(f)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

// Close は動画ファイルを閉じる
func (w *Writer) Close() error {
	return w.vw.Close()
}

// toBGRMat はフレームを BGR の Mat に変換する
func toBGRMat(f *vision.Frame) (gocv.Mat, error) {
	data := f.Data
	if f.Order != vision.OrderBGR {
		c := f.Clone()
		c.ConvertTo(vision.OrderBGR)
		data = c.Data
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("Matの作成に失敗: %w", err)
	}
	return mat, nil
}

// FindContours は cv::findContours で外側の輪郭を抽出し、外接矩形と面積を返す
func FindContours(mask *vision.Mask) []vision.Contour {
	if mask.Empty() {
		return nil
	}
	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8U, mask.Data)
	if err != nil {
		return nil
	}
	defer mat.Close()

	points := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer points.Close()

	contours := make([]vision.Contour, 0, points.Size())
	for i := 0; i < points.Size(); i++ {
		pv := points.At(i)
		contours = append(contours, vision.Contour{
			Bounds: gocv.BoundingRect(pv),
			Area:   int(gocv.ContourArea(pv)),
		})
	}
	return contours
}
