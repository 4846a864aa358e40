package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gazer/internal/camera"
	"gazer/internal/capture"
	"gazer/internal/library"
	"gazer/internal/vision"
)

// errorResponse はエラー時のレスポンス
type errorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func respondError(c *gin.Context, code int, errCode, message string) {
	c.AbortWithStatusJSON(code, errorResponse{
		Error:     errCode,
		Message:   message,
		Timestamp: time.Now(),
	})
}

type serverInfo struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type statusResponse struct {
	Status    string         `json:"status"`
	Server    serverInfo     `json:"server"`
	Pipeline  capture.Status `json:"pipeline"`
	Timestamp time.Time      `json:"timestamp"`
}

type recorderResponse struct {
	Recorder capture.RecorderState `json:"recorder"`
	Session  *capture.Session      `json:"session,omitempty"`
}

type motionRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

// handleStatus はパイプラインの状態を返す
func (s *Server) handleStatus(c *gin.Context) {
	st := s.pipeline.Status()
	state := "stopped"
	if st.Running {
		state = "running"
	}

	c.JSON(http.StatusOK, statusResponse{
		Status: state,
		Server: serverInfo{
			Host: s.config.Server.Host,
			Port: s.config.Server.Port,
		},
		Pipeline:  st,
		Timestamp: time.Now(),
	})
}

// handleCameras は接続されているカメラの一覧を返す
func (s *Server) handleCameras(c *gin.Context) {
	if s.discovery == nil {
		c.JSON(http.StatusOK, gin.H{"cameras": []camera.DeviceInfo{}})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	infos, err := camera.Describe(ctx, s.discovery)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "discovery_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cameras": infos})
}

// handleRecordingStart は手動録画を開始する
func (s *Server) handleRecordingStart(c *gin.Context) {
	if !s.pipeline.StartRecording() {
		respondError(c, http.StatusConflict, "invalid_state", "録画を開始できる状態ではありません")
		return
	}
	s.respondRecorder(c)
}

// handleRecordingStop は録画を停止する
func (s *Server) handleRecordingStop(c *gin.Context) {
	if !s.pipeline.StopRecording() {
		respondError(c, http.StatusConflict, "invalid_state", "録画中ではありません")
		return
	}
	s.respondRecorder(c)
}

func (s *Server) respondRecorder(c *gin.Context) {
	st := s.pipeline.Status()
	c.JSON(http.StatusAccepted, recorderResponse{Recorder: st.Recorder, Session: st.Session})
}

// handleMotion は動き検出の有効/無効を切り替える
func (s *Server) handleMotion(c *gin.Context) {
	var req motionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	s.pipeline.SetMotionDetection(*req.Enabled)
	c.JSON(http.StatusOK, gin.H{"motion_enabled": *req.Enabled})
}

// handleCalibrate は次のフレームでのfps計測を要求する
// 結果は fps_changed イベントで通知される
func (s *Server) handleCalibrate(c *gin.Context) {
	s.pipeline.CalibrateFPS()
	c.JSON(http.StatusAccepted, gin.H{"frames": s.config.Capture.FPS.CalibrationFrames})
}

// handleSnapshot は最新フレームをJPEGで返す
func (s *Server) handleSnapshot(c *gin.Context) {
	frame, ok := s.pipeline.LatestFrame()
	if !ok {
		respondError(c, http.StatusServiceUnavailable, "no_frame", "まだフレームがありません")
		return
	}

	var buf bytes.Buffer
	if err := vision.EncodeJPEG(&buf, frame, s.config.Stream.JPEGQuality); err != nil {
		respondError(c, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

// handleStream は最新フレームをMJPEGで配信する
// フレーム公開イベントを契機に送信し、Stream.Interval より短い間隔のフレームは間引く
func (s *Server) handleStream(c *gin.Context) {
	events, cancel := s.pipeline.Subscribe(4)
	defer cancel()

	// MJPEGストリームのヘッダーを設定
	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	interval := s.config.Stream.Interval.Duration
	var (
		buf  bytes.Buffer
		last time.Time
	)

	// 既に公開済みのフレームがあればすぐに送る
	if err := s.writeStreamFrame(c.Writer, &buf); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind != capture.EventFrameCaptured {
				continue
			}
			if interval > 0 && time.Since(last) < interval {
				continue
			}
			if err := s.writeStreamFrame(c.Writer, &buf); err != nil {
				s.logger.Debug("ストリームの書き込みを終了", "error", err)
				return
			}
			last = time.Now()
		}
	}
}

// writeStreamFrame はMJPEGの1パートを書き込んでフラッシュする
func (s *Server) writeStreamFrame(w gin.ResponseWriter, buf *bytes.Buffer) error {
	frame, ok := s.pipeline.LatestFrame()
	if !ok {
		return nil
	}

	buf.Reset()
	if err := vision.EncodeJPEG(buf, frame, s.config.Stream.JPEGQuality); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", buf.Len()); err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write([]byte("\r\n")); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// handleEvents はワーカーのイベントを Server-Sent Events で配信する
// frame_captured は件数が多いため ?frames=true の場合のみ送る
func (s *Server) handleEvents(c *gin.Context) {
	events, cancel := s.pipeline.Subscribe(s.config.Stream.EventBuffer)
	defer cancel()

	withFrames := c.Query("frames") == "true"
	streamID := uuid.NewString()
	s.logger.Debug("イベント購読を開始", "stream", streamID)
	defer s.logger.Debug("イベント購読を終了", "stream", streamID)

	c.Header("X-Stream-ID", streamID)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		for {
			select {
			case <-ctx.Done():
				return false
			case <-s.quit:
				return false
			case ev, ok := <-events:
				if !ok {
					return false
				}
				if ev.Kind == capture.EventFrameCaptured && !withFrames {
					continue
				}
				c.SSEvent(string(ev.Kind), ev)
				return true
			}
		}
	})
}

// handleVideos は保存済みの動画一覧を返す
func (s *Server) handleVideos(c *gin.Context) {
	videos, err := library.List(s.config.Capture.Recorder.SaveDir)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// handleVideoCover はカバー画像のサムネイルを返す
// w, h クエリで大きさを指定できる（省略時は設定値、0で元の大きさ）
func (s *Server) handleVideoCover(c *gin.Context) {
	name := c.Param("name")
	if !library.ValidName(name) {
		respondError(c, http.StatusBadRequest, "invalid_name", "無効なセッション名です")
		return
	}

	width, err := queryInt(c, "w", s.config.Stream.ThumbWidth)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	height, err := queryInt(c, "h", s.config.Stream.ThumbHeight)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	img, err := library.Thumbnail(s.config.Capture.Recorder.SaveDir, name, width, height)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			respondError(c, http.StatusNotFound, "not_found", "カバー画像がありません")
			return
		}
		respondError(c, http.StatusInternalServerError, "thumbnail_failed", err.Error())
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.config.Stream.JPEGQuality)); err != nil {
		respondError(c, http.StatusInternalServerError, "encode_failed", err.Error())
		return
	}
	c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
}

// handleVideoFile は動画ファイルを返す
func (s *Server) handleVideoFile(c *gin.Context) {
	name := c.Param("name")
	if !library.ValidName(name) {
		respondError(c, http.StatusBadRequest, "invalid_name", "無効なセッション名です")
		return
	}

	_, video := library.Paths(s.config.Capture.Recorder.SaveDir, name)
	if _, err := os.Stat(video); err != nil {
		respondError(c, http.StatusNotFound, "not_found", "動画がありません")
		return
	}

	c.Header("Content-Type", "video/x-msvideo")
	c.File(video)
}

// handleRoot はルートパスのハンドラ
func (s *Server) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(`<!DOCTYPE html>
<html lang="ja">
<head>
    <meta charset="UTF-8">
    <title>Gazer</title>
</head>
<body>
    <h1>Gazer</h1>
    <img src="/api/stream" alt="live">
    <p>ステータス: <a href="/api/status">/api/status</a></p>
    <p>保存済み動画: <a href="/api/videos">/api/videos</a></p>
    <p>イベント: <a href="/api/events">/api/events</a></p>
    <p>ヘルスチェック: <a href="/health">/health</a></p>
</body>
</html>`))
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s の値が不正です: %q", key, v)
	}
	return n, nil
}
