package api

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/symptom-checker/internal/analysis"
	"github.com/Skufu/symptom-checker/internal/catalog"
	"github.com/Skufu/symptom-checker/internal/history"
	"github.com/Skufu/symptom-checker/internal/metrics"
	"github.com/Skufu/symptom-checker/internal/model"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 10 << 10

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Checker is the symptom pipeline the handlers drive.
type Checker interface {
	StartCheck(ctx context.Context, symptom string, meta model.RequestMeta) analysis.StartCheckResult
	Analyze(ctx context.Context, req analysis.AnalyzeRequest) model.AnalysisResult
}

type ConditionReader interface {
	FindAll(ctx context.Context) ([]catalog.Condition, error)
	Count(ctx context.Context) (int, error)
}

type Options struct {
	Checker         Checker
	Conditions      ConditionReader
	History         history.Reader
	DB              HealthChecker
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	StaticRoot      string
	AllowedOrigins  []string
	// TrustedProxies lists the proxy CIDRs whose forwarding headers are
	// believed. Empty means the peer address is always the client IP.
	TrustedProxies  []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	Environment     string
}

type handler struct {
	checker     Checker
	conditions  ConditionReader
	history     history.Reader
	db          HealthChecker
	logger      *slog.Logger
	environment string
}

func NewRouter(opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		logger.Error("invalid trusted proxies, trusting none", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(
		requestID(),
		requestLogger(logger, opts.Metrics),
		recovery(logger),
		limitBodySize(MaxBodyBytes),
		cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization", requestIDHeader},
			MaxAge:       12 * time.Hour,
		}),
	)

	if opts.StaticRoot != "" && fileExists(filepath.Join(opts.StaticRoot, "index.html")) {
		router.Static("/static", opts.StaticRoot)
		router.StaticFile("/", filepath.Join(opts.StaticRoot, "index.html"))
	}

	h := &handler{
		checker:     opts.Checker,
		conditions:  opts.Conditions,
		history:     opts.History,
		db:          opts.DB,
		logger:      logger,
		environment: opts.Environment,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", h.ready)
	router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))

	apiGroup := router.Group("/api")
	apiGroup.Use(NewRateLimiter(opts.RateLimitMax, opts.RateLimitWindow).Middleware())
	apiGroup.GET("/health", h.health)
	apiGroup.POST("/start-check", h.startCheck)
	apiGroup.POST("/analyze", h.analyze)
	apiGroup.GET("/conditions", h.listConditions)
	apiGroup.GET("/history", h.recentHistory)
	apiGroup.GET("/stats", h.stats)

	router.NoRoute(notFound)

	return router
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
