package frontend

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikey/phishsense/internal/config"
	"github.com/mikey/phishsense/internal/core"
	"github.com/mikey/phishsense/internal/scoring"
)

const defaultHistoryLimit = 20

// HTTPFrontend serves the scan and history API
type HTTPFrontend struct {
	service *core.AnalysisService
	models  *scoring.Service
	logger  *zap.Logger
	cfg     config.HTTPConfig
	router  *gin.Engine
	server  *http.Server
}

// NewHTTPFrontend creates the HTTP API and registers its routes
func NewHTTPFrontend(service *core.AnalysisService, models *scoring.Service, logger *zap.Logger, cfg config.HTTPConfig) *HTTPFrontend {
	gin.SetMode(gin.ReleaseMode)

	f := &HTTPFrontend{
		service: service,
		models:  models,
		logger:  logger,
		cfg:     cfg,
		router:  gin.New(),
	}
	f.router.Use(gin.Recovery(), requestLogger(logger))

	f.router.GET("/healthz", f.health)
	v1 := f.router.Group("/api/v1")
	{
		v1.POST("/scan/url", f.scanURL)
		v1.POST("/scan/email", f.scanEmail)
		v1.POST("/scan/qr", f.scanQR)
		v1.GET("/history", f.history)
		v1.GET("/history/session", f.sessionHistory)
	}
	return f
}

// Name implements ports.Frontend
func (f *HTTPFrontend) Name() string {
	return "http"
}

// Handler exposes the router, mainly for tests
func (f *HTTPFrontend) Handler() http.Handler {
	return f.router
}

// Start implements ports.Frontend
func (f *HTTPFrontend) Start() error {
	ln, err := net.Listen("tcp", f.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.cfg.ListenAddress, err)
	}
	f.server = &http.Server{
		Handler:           f.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	f.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop implements ports.Frontend
func (f *HTTPFrontend) Stop() error {
	if f.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.server.Shutdown(ctx)
}

// logOptions are accepted by every scan request
type logOptions struct {
	Log       bool   `json:"log" form:"log"`
	SessionID string `json:"session_id" form:"session_id"`
}

type urlScanRequest struct {
	URL string `json:"url"`
	logOptions
}

type emailScanRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Sender  string `json:"sender"`
	logOptions
}

type qrScanRequest struct {
	Payload string `json:"payload"`
	logOptions
}

func (f *HTTPFrontend) scanURL(c *gin.Context) {
	var req urlScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	env := f.service.AnalyzeURL(c.Request.Context(), req.URL)
	f.respond(c, env, req.logOptions)
}

func (f *HTTPFrontend) scanEmail(c *gin.Context) {
	var req emailScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	env := f.service.AnalyzeEmail(c.Request.Context(), req.Subject, req.Body, req.Sender)
	f.respond(c, env, req.logOptions)
}

func (f *HTTPFrontend) scanQR(c *gin.Context) {
	ctx := c.Request.Context()

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if f.cfg.MaxUploadBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, f.cfg.MaxUploadBytes)
		}
		fh, err := c.FormFile("qr_file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing qr_file upload"})
			return
		}
		file, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer file.Close()

		var opts logOptions
		if err := c.ShouldBind(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.respond(c, f.service.AnalyzeQRImage(ctx, file), opts)
		return
	}

	var req qrScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f.respond(c, f.service.AnalyzeQRPayload(ctx, req.Payload), req.logOptions)
}

// respond optionally logs the scan and writes the envelope
func (f *HTTPFrontend) respond(c *gin.Context, env *core.Envelope, opts logOptions) {
	if opts.Log {
		f.service.LogScanBestEffort(c.Request.Context(), env, opts.SessionID)
	}
	c.JSON(http.StatusOK, env)
}

func (f *HTTPFrontend) history(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	scans, err := f.service.RecentScans(c.Request.Context(), limit)
	if err != nil {
		f.logger.Error("Failed to read scan history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read scan history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scans": scans})
}

func (f *HTTPFrontend) sessionHistory(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = f.service.SessionID()
	}
	scans, err := f.service.SessionScans(c.Request.Context(), sessionID, limit)
	if err != nil {
		f.logger.Error("Failed to read session history", zap.Error(err), zap.String("session_id", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read session history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "scans": scans})
}

func (f *HTTPFrontend) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "session_id": f.service.SessionID()}
	if f.models != nil {
		resp["models"] = f.models.Warm()
	}
	c.JSON(http.StatusOK, resp)
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
		return 0, false
	}
	return limit, true
}

// requestLogger logs each request with zap
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
