package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"donorboard/internal/amqp"
	"donorboard/internal/analytics"
	"donorboard/internal/cache"
	"donorboard/internal/content"
	"donorboard/internal/dashboard"
	"donorboard/internal/loader"
	"donorboard/internal/log"
	"donorboard/internal/middleware/ratelimit"
	"donorboard/internal/middleware/security"
	"donorboard/internal/middleware/trace"
	"donorboard/internal/session"
	appweb "donorboard/web"
)

// DatasetPublisher announces newly loaded tables. Failures never fail the
// upload.
type DatasetPublisher interface {
	PublishDatasetLoaded(ctx context.Context, msg *amqp.DatasetLoadedMessage) error
}

// Pinger is a dependency /readyz can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStats exposes a cache's counters on /metrics.
type CacheStats interface {
	Stats() cache.Stats
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Content  *content.Content
	Engine   *analytics.Engine
	Sessions *session.Manager
	// Source is set when the table is read from a fixed location; nil
	// means every visitor uploads their own file.
	Source         loader.Source
	Publisher      DatasetPublisher
	Logger         *log.Logger
	MaxUploadBytes int64
	// Pingers are probed by /readyz, keyed by check name.
	Pingers map[string]Pinger
	// Caches are reported on /metrics, keyed by cache name.
	Caches map[string]CacheStats
}

type Server struct {
	http.Server
	templates  *template.Template
	content    *content.Content
	engine     *analytics.Engine
	sessions   *session.Manager
	source     loader.Source
	publisher  DatasetPublisher
	maxUpload  int64
	pingers    map[string]Pinger
	caches     map[string]CacheStats
	logger     *log.Logger
	structured *log.StructuredLogger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime          time.Time
	uploads         int64
	uploadFailures  int64
	publishFailures int64
}

const defaultMaxUploadBytes = 1000 << 20

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	if deps.Engine == nil {
		deps.Engine = analytics.NewEngine(1000)
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewManager(session.NewMemoryStore(500, 2*time.Hour), 2*time.Hour, false)
	}

	mux := http.NewServeMux()
	detector := security.NewDetector(logger.WithComponent(log.ComponentSecurity))
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       5 * time.Minute,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		content:          deps.Content,
		engine:           deps.Engine,
		sessions:         deps.Sessions,
		source:           deps.Source,
		publisher:        deps.Publisher,
		maxUpload:        deps.MaxUploadBytes,
		pingers:          deps.Pingers,
		caches:           deps.Caches,
		logger:           logger,
		structured:       log.NewStructuredLogger(logger),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 20}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, logger.WithComponent(log.ComponentTrace)),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	if s.content == nil {
		c, err := content.Default()
		if err != nil {
			logger.Error("Failed loading page content", log.FieldError, err)
		}
		s.content = c
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err, log.FieldComponent, log.ComponentTemplate)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("POST /upload", s.rateLimiter.Middleware(detector.ExtractClientIP, s.onRateLimit)(http.HandlerFunc(s.handleUpload)))
	mux.HandleFunc("GET /ui/sections/{section}", s.handleSection)
	mux.HandleFunc("GET /ui/cultivation/average", s.handleAverageDonors)
	mux.HandleFunc("GET /ui/cultivation/ranked", s.handleRankedDonors)
	mux.HandleFunc("GET /api/charts/{view}", s.handleChartSpec)
	mux.HandleFunc("GET /charts/{file}", s.handleChartSVG)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	var handler http.Handler = mux
	handler = log.RequestIDMiddleware(trace.RequestIDFrom)(handler)
	handler = log.Middleware(logger)(handler)
	handler = detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)
	s.Handler = handler

	return s
}

var templateFuncs = template.FuncMap{
	"count": dashboard.Count,
	"hint": func() *dashboard.Notice {
		return &dashboard.Notice{Level: dashboard.LevelInfo, Message: dashboard.MsgUploadHint}
	},
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template into memory so a failure can still produce a
// clean error response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) ([]byte, bool) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return nil, false
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldComponent, log.ComponentTemplate,
			"template", name)
		InternalServerError(dashboard.MsgUnexpected).Write(w)
		return nil, false
	}
	return buf.Bytes(), true
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Upload rate limit exceeded",
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldComponent, log.ComponentRateLimit)
	msg := "Too many uploads. Please try again later."
	ErrorResponse(http.StatusTooManyRequests, msg).
		TriggerErrorNotification(msg).
		Write(w)
}

func (s *Server) publish(ctx context.Context, sessionID string, msg *amqp.DatasetLoadedMessage) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.publisher.PublishDatasetLoaded(ctx, msg); err != nil {
		atomic.AddInt64(&s.appMetrics.publishFailures, 1)
		s.logger.WarnContext(ctx, "Dataset event not published",
			log.FieldError, err,
			log.FieldSessionID, sessionID,
			log.FieldComponent, log.ComponentAMQP,
			log.FieldOperation, log.OpPublish)
	}
}
