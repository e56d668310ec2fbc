package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Skufu/symptom-checker/internal/analysis"
	"github.com/Skufu/symptom-checker/internal/api"
	"github.com/Skufu/symptom-checker/internal/catalog"
	"github.com/Skufu/symptom-checker/internal/config"
	"github.com/Skufu/symptom-checker/internal/database"
	"github.com/Skufu/symptom-checker/internal/history"
	"github.com/Skufu/symptom-checker/internal/llm"
	"github.com/Skufu/symptom-checker/internal/logging"
	"github.com/Skufu/symptom-checker/internal/metrics"
	"github.com/Skufu/symptom-checker/internal/model"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "symptom-checker",
		Short: "Educational symptom checker backed by an LLM and a curated condition catalog",
		Long: `symptom-checker triages a free-text symptom for emergencies, asks three
clarifying questions and produces an educational analysis grounded in a
curated catalog of medical conditions.

It is not a diagnostic tool.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml); environment variables take precedence")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), cfgFile)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Seed the configured condition store and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd, cfgFile)
			},
		},
		&cobra.Command{
			Use:   "check <symptom>",
			Short: "Run the start-check step once and print the result as JSON",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCheck(cmd, cfgFile, strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "symptom-checker %s\n", version)
			},
		},
	)
	return root
}

// app holds the wired dependencies shared by every command.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *metrics.Metrics
	pool       *pgxpool.Pool
	conditions catalog.Store
	history    history.Store
}

func newApp(ctx context.Context, cfgFile string) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat),
		metrics: metrics.New(),
	}

	if cfg.EnableDB {
		if err := database.Migrate(cfg.DatabaseURL, a.logger); err != nil {
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		a.pool, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		a.conditions = catalog.NewPostgresStore(a.pool)
		a.history = history.NewPostgresLog(a.pool)
	} else {
		a.logger.Warn("database disabled, using in-memory catalog and query log")
		a.conditions = catalog.NewMemoryStore()
		a.history = history.NewMemoryLog(cfg.HistoryCapacity)
	}

	return a, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *app) seed(ctx context.Context) (int, error) {
	n, err := catalog.Seed(ctx, a.conditions, a.logger)
	if err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}
	return n, nil
}

func (a *app) service() (*analysis.Service, error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		Provider:    a.cfg.LLM.Provider,
		Model:       a.cfg.LLM.Model,
		APIKey:      a.cfg.LLM.APIKey,
		BaseURL:     a.cfg.LLM.BaseURL,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	gateway := llm.NewGateway(client, llm.WithLogger(a.logger), llm.WithMetrics(a.metrics))

	svcCfg := analysis.DefaultConfig()
	svcCfg.QuestionTokens = a.cfg.LLM.MaxTokensQuestions
	svcCfg.AnalysisTokens = a.cfg.LLM.MaxTokensAnalysis
	svcCfg.Retries = a.cfg.LLM.Retries()
	svcCfg.StrictCandidates = a.cfg.StrictCandidates

	matcher := catalog.NewMatcher(a.conditions, a.logger, a.metrics)
	return analysis.NewService(matcher, gateway, a.history, svcCfg, a.logger, a.metrics), nil
}

func (a *app) router(svc *analysis.Service) *gin.Engine {
	staticRoot := a.cfg.StaticDir
	if staticRoot == "" {
		staticRoot = detectStaticRoot()
	}

	opts := api.Options{
		Checker:         svc,
		Conditions:      a.conditions,
		History:         a.history,
		Metrics:         a.metrics,
		Logger:          a.logger,
		StaticRoot:      staticRoot,
		AllowedOrigins:  a.cfg.AllowedOrigins,
		TrustedProxies:  a.cfg.TrustedProxies,
		RateLimitMax:    a.cfg.RateLimitMax,
		RateLimitWindow: a.cfg.RateLimitWindow,
		Environment:     a.cfg.Environment,
	}
	if a.pool != nil {
		opts.DB = a.pool
	}
	return api.NewRouter(opts)
}

func runServe(ctx context.Context, cfgFile string) error {
	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(a.cfg.GinMode)

	if _, err := a.seed(ctx); err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.router(svc),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// analyze may run two completion attempts plus backoff
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	a.logger.Info("server listening",
		"port", a.cfg.Port,
		"environment", a.cfg.Environment,
		"llm_provider", a.cfg.LLM.Provider,
		"llm_model", a.cfg.LLM.Model,
		"database", a.cfg.EnableDB,
	)
	return waitForShutdown(server, errCh, a.logger)
}

func runSeed(cmd *cobra.Command, cfgFile string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.seed(ctx)
	if err != nil {
		return err
	}
	total, err := a.conditions.Count(ctx)
	if err != nil {
		return fmt.Errorf("count conditions: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inserted %d conditions (%d total)\n", n, total)
	return nil
}

func runCheck(cmd *cobra.Command, cfgFile, symptom string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.close()

	if _, err := a.seed(ctx); err != nil {
		return err
	}
	svc, err := a.service()
	if err != nil {
		return err
	}

	result := svc.StartCheck(ctx, strings.TrimSpace(symptom), model.RequestMeta{
		RequestID: uuid.NewString(),
		UserAgent: "symptom-checker-cli/" + version,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func waitForShutdown(server *http.Server, errCh <-chan error, logger *slog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// detectStaticRoot looks for index.html in the working directory and its two parents.
func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "."
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		if info, err := os.Stat(filepath.Join(dir, "index.html")); err == nil && !info.IsDir() {
			return dir
		}
	}

	return startDir
}
