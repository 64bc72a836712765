package dashhttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"paperdash/internal/config"
	"paperdash/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 提供看板的 JSON 接口与图表页面。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述看板 HTTP 服务依赖。Refresh 与 History 可为空。
type ServerConfig struct {
	Addr       string
	Board      StateSource
	Refresh    RefreshTrigger
	History    HistoryReader
	Dashboard  config.DashboardConfig
	Indicators config.IndicatorsConfig
}

// NewServer 构建看板 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Board == nil {
		return nil, errors.New("dashboard http server requires a board")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9992"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r := NewRouter(cfg)
	r.Register(router.Group("/api/dashboard"))
	r.RegisterCharts(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, c.Writer.Status(), client, time.Since(start))
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("dashboard http listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
