package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"gazer/internal/capture"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig   `yaml:"server" toml:"server"`
	Source  SourceConfig   `yaml:"source" toml:"source"`
	Capture capture.Config `yaml:"capture" toml:"capture"`
	Stream  StreamConfig   `yaml:"stream" toml:"stream"`
	FFmpeg  FFmpegConfig   `yaml:"ffmpeg" toml:"ffmpeg"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`                                     // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"required,min=1,max=65535"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout"`         // 読み込みタイムアウト
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout"`       // 書き込みタイムアウト（0 = 無効）
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"` // グレースフルシャットダウンの待ち時間
}

// SourceConfig は取り込み元の設定
type SourceConfig struct {
	Target  string `yaml:"target" toml:"target" validate:"required"`                       // カメラ番号またはファイルパス
	Backend string `yaml:"backend" toml:"backend" validate:"required,oneof=ffmpeg opencv"` // キャプチャバックエンド
}

// StreamConfig はライブ表示の設定
type StreamConfig struct {
	JPEGQuality int      `yaml:"jpeg_quality" toml:"jpeg_quality" validate:"gte=1,lte=100"` // MJPEG/スナップショットの品質
	Interval    Duration `yaml:"interval" toml:"interval"`                                  // MJPEG の最小送信間隔
	ThumbWidth  int      `yaml:"thumb_width" toml:"thumb_width" validate:"gte=0"`           // サムネイル幅
	ThumbHeight int      `yaml:"thumb_height" toml:"thumb_height" validate:"gte=0"`         // サムネイル高さ
	EventBuffer int      `yaml:"event_buffer" toml:"event_buffer" validate:"gte=1"`         // SSE購読者ごとのバッファ
}

// FFmpegConfig は ffmpeg バックエンドの設定
type FFmpegConfig struct {
	Path      string `yaml:"path" toml:"path" validate:"required"`             // ffmpeg 実行ファイル
	ProbePath string `yaml:"probe_path" toml:"probe_path" validate:"required"` // ffprobe 実行ファイル
	VideoSize string `yaml:"video_size" toml:"video_size"`                     // カメラに要求する解像度
	Quality   int    `yaml:"quality" toml:"quality" validate:"gte=2,lte=31"`   // MJPEG 品質 (-q:v)
}

// Duration は "10s" のような文字列で書ける time.Duration
type Duration struct {
	time.Duration
}

// UnmarshalText は文字列から Duration を解析する
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("無効な時間指定 %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText は Duration を文字列にする
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration{10 * time.Second},
			WriteTimeout:    Duration{0}, // ストリーミング用にタイムアウト無効化
			ShutdownTimeout: Duration{5 * time.Second},
		},
		Source: SourceConfig{
			Target:  "0",
			Backend: "ffmpeg",
		},
		Capture: capture.DefaultConfig(),
		Stream: StreamConfig{
			JPEGQuality: 80,
			Interval:    Duration{66 * time.Millisecond},
			ThumbWidth:  320,
			ThumbHeight: 240,
			EventBuffer: 64,
		},
		FFmpeg: FFmpegConfig{
			Path:      "ffmpeg",
			ProbePath: "ffprobe",
			Quality:   3,
		},
	}
}

// Load は設定を読み込む
// デフォルト値 → 設定ファイル（path が空でなければ）→ 環境変数 の順に上書きし、最後に検証する
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile は拡張子に応じて YAML または TOML を読み込む
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %s", path)
	}
	if err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗 (%s): %w", path, err)
	}
	return nil
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() error {
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)
	c.Source.Target = getEnvOrDefault("GAZER_SOURCE", c.Source.Target)
	c.Source.Backend = getEnvOrDefault("GAZER_BACKEND", c.Source.Backend)
	c.Capture.Recorder.SaveDir = getEnvOrDefault("GAZER_SAVE_DIR", c.Capture.Recorder.SaveDir)

	if value := os.Getenv("GAZER_MOTION"); value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("GAZER_MOTION の値が不正: %q", value)
		}
		c.Capture.Motion.Enabled = enabled
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s (%s=%s, 値: %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("無効な設定: %s", strings.Join(msgs, ", "))
		}
		return err
	}

	if c.Capture.Motion.KernelSize%2 == 0 {
		return fmt.Errorf("カーネルサイズは奇数である必要があります: %d", c.Capture.Motion.KernelSize)
	}
	if _, err := capture.ParseTarget(c.Source.Target); err != nil {
		return err
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
