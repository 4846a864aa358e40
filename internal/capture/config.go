package capture

import "time"

// Config はキャプチャパイプラインの設定
type Config struct {
	Motion   MotionConfig   `yaml:"motion" toml:"motion"`
	FPS      FPSConfig      `yaml:"fps" toml:"fps"`
	Recorder RecorderConfig `yaml:"recorder" toml:"recorder"`

	// StatsEvery は統計を計算するフレーム間隔（1 = 毎フレーム、0 = 無効）
	// 0 でも status_changed はfps推定値の更新時に Stats なしで送られる
	StatsEvery int `yaml:"stats_every" toml:"stats_every" validate:"gte=0"`
}

// MotionConfig は動き検出の設定
type MotionConfig struct {
	Enabled          bool    `yaml:"enabled" toml:"enabled"`                                             // 起動時に動き検出を有効にするか
	History          int     `yaml:"history" toml:"history" validate:"gte=1"`                            // 背景モデルの履歴長
	VarThreshold     float64 `yaml:"var_threshold" toml:"var_threshold" validate:"gt=0"`                 // 分散しきい値
	DetectShadows    bool    `yaml:"detect_shadows" toml:"detect_shadows"`                               // 影検出
	MaskThreshold    int     `yaml:"mask_threshold" toml:"mask_threshold" validate:"gte=0,lte=255"`      // マスク二値化しきい値
	KernelSize       int     `yaml:"kernel_size" toml:"kernel_size" validate:"gte=1,lte=99"`             // ノイズ除去カーネル
	ErodeIterations  int     `yaml:"erode_iterations" toml:"erode_iterations" validate:"gte=0,lte=10"`   // 収縮回数
	DilateIterations int     `yaml:"dilate_iterations" toml:"dilate_iterations" validate:"gte=0,lte=10"` // 膨張回数
}

// FPSConfig はフレームレート推定の設定
type FPSConfig struct {
	WindowMillis      int     `yaml:"window_ms" toml:"window_ms" validate:"gte=1"`                   // 継続推定の窓 (ms)
	CalibrationFrames int     `yaml:"calibration_frames" toml:"calibration_frames" validate:"gte=1"` // 計測時に読み捨てるフレーム数
	Fallback          float64 `yaml:"fallback" toml:"fallback" validate:"gt=0"`                      // 録画時のフォールバックfps
}

// Window は継続推定の窓を返す
func (c FPSConfig) Window() time.Duration {
	return time.Duration(c.WindowMillis) * time.Millisecond
}

// RecorderConfig は録画の設定
type RecorderConfig struct {
	SaveDir      string `yaml:"save_dir" toml:"save_dir" validate:"required"`                // 保存先ディレクトリ
	CoverQuality int    `yaml:"cover_quality" toml:"cover_quality" validate:"gte=1,lte=100"` // カバー画像のJPEG品質
}

// DefaultConfig はデフォルトのパイプライン設定を返す
func DefaultConfig() Config {
	return Config{
		Motion: MotionConfig{
			Enabled:          false,
			History:          500,
			VarThreshold:     16,
			DetectShadows:    true,
			MaskThreshold:    25,
			KernelSize:       9,
			ErodeIterations:  1,
			DilateIterations: 3,
		},
		FPS: FPSConfig{
			WindowMillis:      1000,
			CalibrationFrames: 100,
			Fallback:          30,
		},
		Recorder: RecorderConfig{
			SaveDir:      "videos",
			CoverQuality: 90,
		},
		StatsEvery: 1,
	}
}
