package ffmpeg

// Name はバックエンド名
const Name = "ffmpeg"

// Options は外部コマンドの設定
type Options struct {
	FFmpegPath  string // ffmpeg 実行ファイル
	FFprobePath string // ffprobe 実行ファイル
	VideoSize   string // カメラに要求する解像度 (例: "640x480")。空ならデバイスの既定値
	Quality     int    // MJPEG の品質 (-q:v, 2〜31, 小さいほど高品質)
}

// DefaultOptions はデフォルト設定を返す
func DefaultOptions() Options {
	return Options{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Quality:     3,
	}
}
