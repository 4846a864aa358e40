package capture

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gazer/internal/library"
	"gazer/internal/vision"
)

// RecorderState は録画の状態
type RecorderState int

// RecorderState の定数定義
const (
	RecorderStopped  RecorderState = iota // 停止中
	RecorderStarting                      // 開始要求済み（次のフレームでセッションを作成）
	RecorderStarted                       // 録画中
	RecorderStopping                      // 停止要求済み（次のフレームでファイルを閉じる）
)

// String は状態名を返す
func (s RecorderState) String() string {
	switch s {
	case RecorderStopped:
		return "stopped"
	case RecorderStarting:
		return "starting"
	case RecorderStarted:
		return "started"
	case RecorderStopping:
		return "stopping"
	default:
		return fmt.Sprintf("RecorderState(%d)", int(s))
	}
}

// MarshalText はJSON出力用に状態名を返す
func (s RecorderState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// defaultRecordFPS はfpsが不明な場合の録画fps
const defaultRecordFPS = 30

// VideoEncoder は1セッション分の動画ファイルへフレームを書き出す
type VideoEncoder interface {
	WriteFrame(frame *vision.Frame) error
	Close() error
}

// EncoderFactory は指定パス・fps・サイズで動画ファイルを開く
type EncoderFactory func(path string, fps float64, width, height int) (VideoEncoder, error)

// Session は進行中の録画セッション
type Session struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	FPS       float64   `json:"fps"`
	Frames    int       `json:"frames"`
}

// Recorder は録画セッションの状態機械
// 状態はRequestStart/RequestStopで任意のゴルーチンから変更でき、
// ファイル操作はワーカーのループからStepでのみ行う
type Recorder struct {
	cfg        RecorderConfig
	newEncoder EncoderFactory
	namer      *library.Namer
	clock      Clock
	logger     *slog.Logger

	mu       sync.Mutex
	state    RecorderState
	encoder  VideoEncoder
	session  *Session
	sessions int
}

// NewRecorder は新しいRecorderを作成する
func NewRecorder(cfg RecorderConfig, newEncoder EncoderFactory, clock Clock, logger *slog.Logger) *Recorder {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		cfg:        cfg,
		newEncoder: newEncoder,
		namer:      library.NewNamer(cfg.SaveDir, clock.Now),
		clock:      clock,
		logger:     logger,
	}
}

// State は現在の状態を返す
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Session は進行中のセッション情報を返す（録画中でなければ nil）
func (r *Recorder) Session() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// Sessions はこれまでに開始したセッション数を返す
func (r *Recorder) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions
}

// RequestStart は停止中の場合のみ開始を要求する。要求を受け付けたら true
func (r *Recorder) RequestStart() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecorderStopped {
		return false
	}
	r.state = RecorderStarting
	return true
}

// RequestStop は停止を要求する
// 録画中なら Stopping へ、開始前（Starting）ならセッションを作らずに Stopped へ戻す
func (r *Recorder) RequestStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RecorderStarted:
		r.state = RecorderStopping
		return true
	case RecorderStarting:
		r.state = RecorderStopped
		return true
	default:
		return false
	}
}

// Step は1フレーム分だけ状態機械を進める
// セッションを閉じた場合はその名前を saved に返す
func (r *Recorder) Step(frame *vision.Frame, fps float64) (saved string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RecorderStarting:
		if err := r.open(frame, fps); err != nil {
			r.state = RecorderStopped
			return "", err
		}
		r.state = RecorderStarted
		// 開始したフレーム自身も動画の先頭に書き込む
		fallthrough

	case RecorderStarted:
		if err := r.encoder.WriteFrame(frame); err != nil {
			name := r.finish()
			r.state = RecorderStopped
			return name, fmt.Errorf("フレームの書き込みに失敗: %w", err)
		}
		r.session.Frames++
		return "", nil

	case RecorderStopping:
		name := r.finish()
		r.state = RecorderStopped
		return name, nil
	}
	return "", nil
}

// Close はシャットダウン時に進行中のセッションを確定する
func (r *Recorder) Close() (saved string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.encoder == nil {
		r.state = RecorderStopped
		return ""
	}
	name := r.finish()
	r.state = RecorderStopped
	return name
}

// open はセッション名を決め、カバー画像を書き、動画ファイルを開く
func (r *Recorder) open(frame *vision.Frame, fps float64) error {
	if !frame.Valid() {
		return fmt.Errorf("%w: 不正なフレーム", ErrWriterOpenFailed)
	}
	if fps <= 0 {
		fps = defaultRecordFPS
	}
	if err := os.MkdirAll(r.cfg.SaveDir, 0755); err != nil {
		return fmt.Errorf("%w: 保存先ディレクトリの作成に失敗: %v", ErrWriterOpenFailed, err)
	}

	name := r.namer.Next()
	coverPath, videoPath := library.Paths(r.cfg.SaveDir, name)

	if err := vision.SaveJPEG(coverPath, frame, r.cfg.CoverQuality); err != nil {
		return fmt.Errorf("%w: カバー画像の保存に失敗: %v", ErrWriterOpenFailed, err)
	}

	enc, err := r.newEncoder(videoPath, fps, frame.Width, frame.Height)
	if err != nil {
		_ = os.Remove(coverPath) // 片方だけ残さない
		return fmt.Errorf("%w: %v", ErrWriterOpenFailed, err)
	}

	r.encoder = enc
	r.session = &Session{Name: name, StartedAt: r.clock.Now(), FPS: fps}
	r.sessions++
	r.logger.Info("録画を開始", "name", name, "fps", fps, "width", frame.Width, "height", frame.Height)
	return nil
}

// finish は動画ファイルを閉じてセッション名を返す
func (r *Recorder) finish() string {
	if r.encoder == nil {
		return ""
	}
	if err := r.encoder.Close(); err != nil {
		r.logger.Warn("動画ファイルのクローズに失敗", "error", err)
	}
	name := r.session.Name
	r.logger.Info("録画を保存", "name", name, "frames", r.session.Frames)

	r.encoder = nil
	r.session = nil
	return name
}
