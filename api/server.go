package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"VisionFusion/logger"
	"VisionFusion/pipeline"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

const snapshotInterval = 200 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StatusProvider interface {
	Status() pipeline.Status
}

// Server exposes session status, the latest annotated frame and a live event stream.
// It observes the pipeline and never touches the frame loop otherwise.
type Server struct {
	status StatusProvider
	hub    *Hub
	router *gin.Engine

	mu         sync.RWMutex
	snapshot   []byte
	snapshotAt time.Time
}

func New(status StatusProvider) *Server {
	s := &Server{status: status, hub: NewHub()}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.GET("/api/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": s.status.Status()})
	})
	r.GET("/api/snapshot", s.handleSnapshot)
	r.GET("/ws/events", s.handleEvents)
	s.router = r
	return s
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Hub() *Hub {
	return s.hub
}

// OnFrame keeps a JPEG of the annotated frame, at most every snapshotInterval, and
// broadcasts the frame summary.
func (s *Server) OnFrame(res pipeline.FrameResult, annotated gocv.Mat) {
	s.mu.RLock()
	due := res.Time.Sub(s.snapshotAt) >= snapshotInterval || s.snapshot == nil
	s.mu.RUnlock()
	if due && !annotated.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, annotated)
		if err != nil {
			logger.Log().Warn("encode snapshot", zap.Error(err))
		} else {
			jpg := append([]byte(nil), buf.GetBytes()...)
			buf.Close()
			s.mu.Lock()
			s.snapshot = jpg
			s.snapshotAt = res.Time
			s.mu.Unlock()
		}
	}

	if s.hub.Len() == 0 {
		return
	}
	msg, err := json.Marshal(res)
	if err != nil {
		logger.Log().Warn("marshal frame summary", zap.Error(err))
		return
	}
	s.hub.Broadcast(msg)
}

func (s *Server) handleSnapshot(c *gin.Context) {
	s.mu.RLock()
	jpg := s.snapshot
	s.mu.RUnlock()
	if jpg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", jpg)
}

func (s *Server) handleEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// 升级失败，不要再写 JSON
		return
	}
	sub := s.hub.register()
	done := make(chan struct{})

	// 读循环只用于感知断开
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		s.hub.unregister(sub)
		_ = conn.Close()
	}()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down"))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Start serves on port until ctx is done.
func (s *Server) Start(port int, ctx context.Context) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log().Error("API server ListenAndServe error", zap.Error(err))
		}
	}()
	logger.Log().Info("API server started", zap.Int("port", port))
	<-ctx.Done()
	s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log().Error("API server Shutdown error", zap.Error(err))
	}
}
