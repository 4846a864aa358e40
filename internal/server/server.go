package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"gazer/internal/camera"
	"gazer/internal/capture"
	"gazer/internal/config"
	"gazer/internal/vision"
)

// Pipeline はサーバーが操作するキャプチャパイプライン
// capture.Worker が実装する
type Pipeline interface {
	LatestFrame() (*vision.Frame, bool)
	Status() capture.Status
	Subscribe(buffer int) (<-chan capture.Event, func())
	SetMotionDetection(enabled bool)
	CalibrateFPS()
	StartRecording() bool
	StopRecording() bool
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	pipeline   Pipeline
	discovery  camera.Discovery
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server

	// ストリーム系ハンドラへの終了通知
	quit     chan struct{}
	quitOnce sync.Once
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, pipeline Pipeline, discovery camera.Discovery, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		config:    cfg,
		pipeline:  pipeline,
		discovery: discovery,
		logger:    logger.With("component", "server"),
		engine:    engine,
		quit:      make(chan struct{}),
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
		},
	}
	s.setupRoutes()
	return s
}

// Handler はルーティング済みのハンドラを返す（テスト用）
func (s *Server) Handler() http.Handler {
	return s.engine
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes() {
	// ヘルスチェックエンドポイント
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/", s.handleRoot)

	api := s.engine.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/cameras", s.handleCameras)

		// ライブ表示
		api.GET("/stream", s.handleStream)
		api.GET("/snapshot.jpg", s.handleSnapshot)
		api.GET("/events", s.handleEvents)

		// 操作
		api.POST("/recording/start", s.handleRecordingStart)
		api.POST("/recording/stop", s.handleRecordingStop)
		api.POST("/motion", s.handleMotion)
		api.POST("/fps/calibrate", s.handleCalibrate)

		// 保存済み動画
		api.GET("/videos", s.handleVideos)
		api.GET("/videos/:name/cover", s.handleVideoCover)
		api.GET("/videos/:name/video", s.handleVideoFile)
	}
}

// requestLogger はリクエストごとにアクセスログを出力するミドルウェア
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("リクエスト",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("HTTPサーバーを起動しています", "addr", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		s.logger.Info("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		s.logger.Info("シグナルを受信しました", "signal", sig.String())
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています...")

	// 配信中のストリームを先に閉じる（Shutdown は接続の終了を待つため）
	s.quitOnce.Do(func() { close(s.quit) })

	timeout := s.config.Server.ShutdownTimeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
