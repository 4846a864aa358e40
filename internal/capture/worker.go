package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gazer/internal/vision"
)

// Status はワーカーの現在状態のスナップショット
type Status struct {
	ID             string        `json:"id"`
	Target         string        `json:"target"`
	Backend        string        `json:"backend"`
	Running        bool          `json:"running"`
	Width          int           `json:"width"`
	Height         int           `json:"height"`
	SourceFPS      float64       `json:"source_fps"`     // ソース固有のfps（不明なら0）
	FPS            float64       `json:"fps"`            // 継続推定値
	CalibratedFPS  float64       `json:"calibrated_fps"` // 直近の計測値
	Frames         uint64        `json:"frames"`
	MotionEnabled  bool          `json:"motion_enabled"`
	MotionDetected bool          `json:"motion_detected"`
	Recorder       RecorderState `json:"recorder"`
	Session        *Session      `json:"session,omitempty"`
	Stats          *FrameStats   `json:"stats,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	Error          string        `json:"error,omitempty"`
}

// Option はWorkerのオプション
type Option func(*Worker)

// WithClock は時刻の取得元を差し替える
func WithClock(c Clock) Option {
	return func(w *Worker) {
		w.clock = c
	}
}

// Worker は1つのソースからフレームを取り込み、解析・録画・公開を行う
// ソースはワーカーの生存期間中は変更できない（切り替えるには新しいWorkerを作る）
type Worker struct {
	id      string
	cfg     Config
	target  Target
	backend Backend
	logger  *slog.Logger
	clock   Clock

	slot     FrameSlot
	hub      *eventHub
	recorder *Recorder
	rate     *RateEstimator

	running       atomic.Bool
	motionEnabled atomic.Bool
	motionReset   atomic.Bool
	calibrate     atomic.Bool

	mu       sync.Mutex
	started  bool
	source   Source
	detector *MotionDetector
	done     chan struct{}
	err      error

	statusMu sync.RWMutex
	status   Status
}

// NewWorker は新しいWorkerを作成する
func NewWorker(cfg Config, target Target, backend Backend, logger *slog.Logger, opts ...Option) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if backend.NewBackground == nil {
		backend.NewBackground = NativeBackground
	}

	w := &Worker{
		id:      uuid.NewString(),
		cfg:     cfg,
		target:  target,
		backend: backend,
		clock:   RealClock{},
		hub:     newEventHub(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.With("worker", w.id, "target", target.String())
	w.recorder = NewRecorder(cfg.Recorder, backend.NewEncoder, w.clock, w.logger)
	w.rate = NewRateEstimator(w.clock, cfg.FPS.Window())
	w.motionEnabled.Store(cfg.Motion.Enabled)

	w.status = Status{
		ID:            w.id,
		Target:        target.String(),
		Backend:       backend.Name,
		MotionEnabled: cfg.Motion.Enabled,
	}
	return w
}

// ID はワーカーIDを返す
func (w *Worker) ID() string {
	return w.id
}

// Start はソースを開いてキャプチャループを開始する
// ソースを開けない場合は ErrSourceUnavailable をラップして返し、ループは開始しない
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("ワーカー %s は既に開始されています", w.id)
	}

	source, err := w.backend.OpenSource(ctx, w.target)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return err
	}

	info := source.Info()
	if info.Width <= 0 || info.Height <= 0 {
		_ = source.Close()
		return fmt.Errorf("%w: 不正なフレームサイズ %dx%d", ErrSourceUnavailable, info.Width, info.Height)
	}

	model, err := w.backend.NewBackground(w.cfg.Motion)
	if err != nil {
		_ = source.Close()
		return fmt.Errorf("背景モデルの作成に失敗: %w", err)
	}

	w.source = source
	w.detector = NewMotionDetector(w.cfg.Motion, model)
	w.detector.UseContourFinder(w.backend.FindContours)
	w.started = true
	w.running.Store(true)

	w.statusMu.Lock()
	w.status.Running = true
	w.status.Width = info.Width
	w.status.Height = info.Height
	w.status.SourceFPS = info.FPS
	w.status.StartedAt = w.clock.Now()
	w.statusMu.Unlock()

	w.logger.Info("キャプチャを開始",
		"backend", w.backend.Name,
		"width", info.Width,
		"height", info.Height,
		"fps", info.FPS)

	go w.run(ctx, info)
	return nil
}

// Stop はループの停止を要求する。ループは次の反復の先頭で停止する
func (w *Worker) Stop() {
	w.running.Store(false)
}

// Done はループ終了時に閉じられるチャネルを返す
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Wait はループの終了を待ち、異常終了の場合はその原因を返す
// 開始していない場合は即座に返る
func (w *Worker) Wait() error {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return nil
	}

	<-w.done
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// LatestFrame は直近に公開されたフレーム（RGB順）のコピーを返す
func (w *Worker) LatestFrame() (*vision.Frame, bool) {
	return w.slot.Latest()
}

// Subscribe はイベントの購読を開始する
func (w *Worker) Subscribe(buffer int) (<-chan Event, func()) {
	return w.hub.Subscribe(buffer)
}

// Status は現在状態のスナップショットを返す
func (w *Worker) Status() Status {
	w.statusMu.RLock()
	s := w.status
	w.statusMu.RUnlock()

	if s.Stats != nil {
		stats := *s.Stats
		s.Stats = &stats
	}
	s.MotionEnabled = w.motionEnabled.Load()
	s.Recorder = w.recorder.State()
	s.Session = w.recorder.Session()
	return s
}

// SetMotionDetection は動き検出を有効/無効にする
// 切り替え時は動き状態をリセットし、進行中の録画を停止する
func (w *Worker) SetMotionDetection(enabled bool) {
	if w.motionEnabled.Swap(enabled) == enabled {
		return
	}
	w.motionReset.Store(true)
	w.recorder.RequestStop()
	w.logger.Info("動き検出を切り替え", "enabled", enabled)
}

// CalibrateFPS は次の反復でfps計測を行うよう要求する
func (w *Worker) CalibrateFPS() {
	w.calibrate.Store(true)
}

// StartRecording は手動で録画開始を要求する
func (w *Worker) StartRecording() bool {
	return w.recorder.RequestStart()
}

// StopRecording は手動で録画停止を要求する
func (w *Worker) StopRecording() bool {
	return w.recorder.RequestStop()
}

// run はキャプチャループ本体
func (w *Worker) run(ctx context.Context, info SourceInfo) {
	var loopErr error
	defer func() {
		w.shutdown(loopErr)
	}()

	frame := &vision.Frame{}
	scratch := &vision.Frame{}
	var seq uint64

	for w.running.Load() {
		if ctx.Err() != nil {
			break
		}

		// 1. フレーム取得
		frame.Order = vision.OrderBGR
		if err := w.source.Next(frame); err != nil {
			if !errors.Is(err, ErrEndOfStream) {
				loopErr = fmt.Errorf("フレームの取得に失敗: %w", err)
			}
			break
		}
		if !frame.Valid() {
			w.logger.Warn("不正なフレームを受信したため停止します", "width", frame.Width, "height", frame.Height, "bytes", len(frame.Data))
			break
		}
		seq++
		frame.Seq = seq
		frame.Timestamp = w.clock.Now()

		// 2. 動き検出
		if w.motionReset.Swap(false) {
			w.detector.Reset()
		}
		if w.motionEnabled.Load() {
			w.detectMotion(frame)
		}

		// 3. fps計測
		if w.calibrate.Load() {
			fps, err := Calibrate(w.clock, w.source, scratch, w.cfg.FPS.CalibrationFrames)
			w.calibrate.Store(false)
			if errors.Is(err, ErrEndOfStream) {
				break
			}
			if err != nil {
				w.logger.Warn("fps計測に失敗", "error", err)
			} else {
				w.statusMu.Lock()
				w.status.CalibratedFPS = fps
				w.statusMu.Unlock()
				w.logger.Info("fpsを計測", "fps", fps, "frames", w.cfg.FPS.CalibrationFrames)
				w.emit(Event{Kind: EventFPSChanged, FPS: fps})
			}
		}

		// 4. 録画
		saved, err := w.recorder.Step(frame, w.recordFPS(info))
		if err != nil {
			w.logger.Error("録画に失敗", "error", err)
			w.emit(Event{Kind: EventRecordingFailed, Error: err.Error()})
		}
		if saved != "" {
			w.emit(Event{Kind: EventVideoSaved, Name: saved})
		}

		// 5-6. 表示用に変換して公開
		frame.ConvertTo(vision.OrderRGB)
		w.slot.Publish(frame)
		w.emit(Event{Kind: EventFrameCaptured, Seq: seq})

		// 7. fps更新
		fps, updated := w.rate.Tick()

		// 8. 統計
		var stats *FrameStats
		if w.cfg.StatsEvery > 0 && seq%uint64(w.cfg.StatsEvery) == 0 {
			s := ComputeStatistics(frame)
			stats = &s
		}

		w.statusMu.Lock()
		w.status.Frames = seq
		w.status.MotionDetected = w.detector.Detected()
		if updated {
			w.status.FPS = fps
		}
		if stats != nil {
			w.status.Stats = stats
		}
		w.statusMu.Unlock()

		// 統計を取らないフレームでもfpsの推定値が変われば通知する（Stats は nil）
		if stats != nil || updated {
			w.emit(Event{Kind: EventStatusChanged, FPS: fps, Stats: stats})
		}
	}
}

// detectMotion は動き検出を行い、状態変化に応じて録画を開始/停止する
func (w *Worker) detectMotion(frame *vision.Frame) {
	edge, err := w.detector.Detect(frame)
	if err != nil {
		w.logger.Warn("動き検出に失敗", "error", err)
		return
	}

	switch edge {
	case MotionStarted:
		w.logger.Debug("動きを検出")
		w.emit(Event{Kind: EventMotionStarted, Seq: frame.Seq})
		w.recorder.RequestStart()
	case MotionStopped:
		w.logger.Debug("動きがなくなりました")
		w.emit(Event{Kind: EventMotionStopped, Seq: frame.Seq})
		w.recorder.RequestStop()
	}
}

// recordFPS は録画に使うfpsを決める
// ソース固有値 → 計測値 → 継続推定値 → フォールバック の順
func (w *Worker) recordFPS(info SourceInfo) float64 {
	if info.FPS > 0 {
		return info.FPS
	}

	w.statusMu.RLock()
	calibrated, measured := w.status.CalibratedFPS, w.status.FPS
	w.statusMu.RUnlock()

	switch {
	case calibrated > 0:
		return calibrated
	case measured > 0:
		return measured
	case w.cfg.FPS.Fallback > 0:
		return w.cfg.FPS.Fallback
	default:
		return defaultRecordFPS
	}
}

// shutdown は録画を確定し、ソースを解放してイベントハブを閉じる
func (w *Worker) shutdown(loopErr error) {
	w.running.Store(false)

	if name := w.recorder.Close(); name != "" {
		w.emit(Event{Kind: EventVideoSaved, Name: name})
	}
	if err := w.source.Close(); err != nil {
		w.logger.Warn("ソースのクローズに失敗", "error", err)
	}
	if err := w.detector.Close(); err != nil {
		w.logger.Warn("背景モデルの解放に失敗", "error", err)
	}

	final := Event{Kind: EventStopped, Time: w.clock.Now()}

	w.statusMu.Lock()
	w.status.Running = false
	if loopErr != nil {
		w.status.Error = loopErr.Error()
		final.Error = loopErr.Error()
	}
	w.statusMu.Unlock()

	w.mu.Lock()
	w.err = loopErr
	w.mu.Unlock()

	if loopErr != nil {
		w.logger.Error("キャプチャが異常終了", "error", loopErr)
	} else {
		w.logger.Info("キャプチャを停止")
	}

	w.hub.Close(final)
	close(w.done)
}

func (w *Worker) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = w.clock.Now()
	}
	w.hub.Publish(ev)
}
