package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/monastery360/agent/internal/actions"
	"github.com/monastery360/agent/internal/models"
)

// ChatHandler is the pipeline behind every transport.
type ChatHandler interface {
	HandleMessage(ctx context.Context, req models.ChatRequest) *models.AgentResponse
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type HTTPOptions struct {
	Addr            string
	ServiceName     string
	RateLimitPerMin int
	RateLimitBurst  int
	RequestTimeout  time.Duration
	Production      bool
}

// HTTPServer serves the chat API used by the website widget.
type HTTPServer struct {
	opts    HTTPOptions
	engine  *gin.Engine
	server  *http.Server
	handler ChatHandler
	catalog *actions.Catalog
	health  HealthCheck
	logger  *zap.Logger
}

// NewHTTPServer builds the router. health may be nil.
func NewHTTPServer(opts HTTPOptions, handler ChatHandler, catalog *actions.Catalog, health HealthCheck, logger *zap.Logger) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &HTTPServer{
		opts:    opts,
		handler: handler,
		catalog: catalog,
		health:  health,
		logger:  logger.Named("http"),
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(s.logger))
	engine.Use(newRateLimiter(opts.RateLimitPerMin, opts.RateLimitBurst, s.logger).middleware())

	engine.GET("/healthz", s.handleHealth)
	api := engine.Group("/api")
	api.POST("/chat", s.handleChat)
	api.GET("/tools", s.handleTools)

	s.engine = engine
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	s.logger.Info("HTTP server listening", zap.String("addr", s.opts.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *HTTPServer) handleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	resp := s.handler.HandleMessage(ctx, req)
	if resp == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "errorCode": models.ErrorInternal})
		return
	}
	c.JSON(http.StatusOK, resp.ToChatResponse())
}

type toolParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Required    bool     `json:"required"`
	Default     any      `json:"default,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

type toolInfo struct {
	Name        string      `json:"name"`
	Action      models.Kind `json:"action"`
	Description string      `json:"description"`
	Parameters  []toolParam `json:"parameters"`
}

func (s *HTTPServer) handleTools(c *gin.Context) {
	entries := s.catalog.Entries()
	tools := make([]toolInfo, 0, len(entries))
	for _, e := range entries {
		params := make([]toolParam, 0, len(e.Params))
		for _, p := range e.Params {
			params = append(params, toolParam{
				Name:        p.Name,
				Type:        string(p.Type),
				Description: p.Description,
				Required:    p.Required,
				Default:     p.Default,
				Enum:        p.Enum,
				Min:         p.Min,
				Max:         p.Max,
			})
		}
		tools = append(tools, toolInfo{
			Name:        e.ToolName,
			Action:      e.Kind,
			Description: e.Description,
			Parameters:  params,
		})
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools, "count": len(tools)})
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "service": s.opts.ServiceName, "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": s.opts.ServiceName})
}

// requestLogger logs one line per request with a request id.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

const (
	// visitorIdleTTL is how long an IP's bucket survives without requests.
	visitorIdleTTL = 10 * time.Minute
	sweepInterval  = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps a token bucket per client IP. Buckets idle longer than
// idle are swept at most once per sweepInterval.
type rateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

func newRateLimiter(perMinute, burst int, logger *zap.Logger) *rateLimiter {
	if perMinute <= 0 {
		perMinute = 120
	}
	if burst <= 0 {
		burst = 20
	}
	// An evicted bucket comes back full, so keep it at least until it would
	// have refilled anyway.
	refill := time.Minute * time.Duration(burst) / time.Duration(perMinute)
	return &rateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     max(visitorIdleTTL, refill),
		now:      time.Now,
		logger:   logger,
	}
}

func (r *rateLimiter) get(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= sweepInterval {
		r.sweepLocked(now)
	}

	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (r *rateLimiter) sweepLocked(now time.Time) {
	r.lastSweep = now
	evicted := 0
	for ip, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.idle {
			delete(r.visitors, ip)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug("evicted idle rate limit buckets",
			zap.Int("evicted", evicted),
			zap.Int("remaining", len(r.visitors)))
	}
}

func (r *rateLimiter) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

func (r *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !r.get(ip).Allow() {
			r.logger.Warn("rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
