package capture

import (
	"fmt"
	"image/color"

	"gazer/internal/vision"
)

// MotionEdge は動き状態の変化
type MotionEdge int

const (
	// MotionNone は状態に変化がないことを表す
	MotionNone MotionEdge = iota
	// MotionStarted は動きなし→動きありへの変化
	MotionStarted
	// MotionStopped は動きあり→動きなしへの変化
	MotionStopped
)

// String は表示名を返す
func (e MotionEdge) String() string {
	switch e {
	case MotionStarted:
		return "started"
	case MotionStopped:
		return "stopped"
	default:
		return "none"
	}
}

// BackgroundModel は前景マスクを生成する背景差分アルゴリズム
type BackgroundModel interface {
	// Apply はフレームでモデルを更新し、前景マスクを mask に書き込む
	Apply(frame *vision.Frame, mask *vision.Mask) error
	Close() error
}

// BackgroundFactory は設定から背景モデルを作成する
type BackgroundFactory func(cfg MotionConfig) (BackgroundModel, error)

// NativeBackground は純Go実装の背景モデルを作成する
func NativeBackground(cfg MotionConfig) (BackgroundModel, error) {
	return vision.NewGaussianBackground(cfg.History, cfg.VarThreshold, cfg.DetectShadows), nil
}

// ContourFinder は二値マスクから前景領域を抽出する
type ContourFinder func(mask *vision.Mask) []vision.Contour

// motionBoxColor は検出領域の枠の色
var motionBoxColor = color.RGBA{R: 255, A: 255}

// MotionDetector は背景差分から動きの開始/終了を検出する
type MotionDetector struct {
	cfg      MotionConfig
	model    BackgroundModel
	find     ContourFinder
	mask     *vision.Mask
	detected bool
	contours []vision.Contour
}

// NewMotionDetector は新しいMotionDetectorを作成する
func NewMotionDetector(cfg MotionConfig, model BackgroundModel) *MotionDetector {
	return &MotionDetector{
		cfg:   cfg,
		model: model,
		find:  vision.FindContours,
		mask:  vision.NewMask(0, 0),
	}
}

// UseContourFinder は領域抽出の実装を差し替える（nil は無視する）
func (d *MotionDetector) UseContourFinder(find ContourFinder) {
	if find != nil {
		d.find = find
	}
}

// Detect はフレームを背景モデルに通し、状態が変化した場合のみエッジを返す
// 検出した各領域の外接矩形をフレームへ直接描画する
func (d *MotionDetector) Detect(frame *vision.Frame) (MotionEdge, error) {
	if err := d.model.Apply(frame, d.mask); err != nil {
		return MotionNone, fmt.Errorf("背景モデルの更新に失敗: %w", err)
	}
	if d.mask.Empty() {
		return MotionNone, nil
	}

	d.mask.Threshold(uint8(d.cfg.MaskThreshold))
	d.mask.Erode(d.cfg.KernelSize, d.cfg.ErodeIterations)
	d.mask.Dilate(d.cfg.KernelSize, d.cfg.DilateIterations)

	d.contours = d.find(d.mask)
	hasMotion := len(d.contours) > 0

	edge := MotionNone
	switch {
	case !d.detected && hasMotion:
		d.detected = true
		edge = MotionStarted
	case d.detected && !hasMotion:
		d.detected = false
		edge = MotionStopped
	}

	for _, c := range d.contours {
		vision.DrawRect(frame, c.Bounds, motionBoxColor, 1)
	}

	return edge, nil
}

// Detected は現在の動き状態を返す
func (d *MotionDetector) Detected() bool {
	return d.detected
}

// Contours は直近に検出した領域を返す
func (d *MotionDetector) Contours() []vision.Contour {
	return d.contours
}

// Reset は動き状態をクリアする（エッジは発生させない）
func (d *MotionDetector) Reset() {
	d.detected = false
	d.contours = nil
}

// Close は背景モデルを解放する
func (d *MotionDetector) Close() error {
	return d.model.Close()
}
