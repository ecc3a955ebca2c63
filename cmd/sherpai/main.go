package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sherpai/sherpai/internal/adapter/cli"
	"github.com/sherpai/sherpai/internal/adapter/console"
	"github.com/sherpai/sherpai/internal/adapter/git"
	githubadapter "github.com/sherpai/sherpai/internal/adapter/github"
	"github.com/sherpai/sherpai/internal/adapter/httpclient"
	"github.com/sherpai/sherpai/internal/adapter/kv/memory"
	"github.com/sherpai/sherpai/internal/adapter/kv/redis"
	"github.com/sherpai/sherpai/internal/adapter/kv/sqlite"
	"github.com/sherpai/sherpai/internal/adapter/llm/openrouter"
	"github.com/sherpai/sherpai/internal/adapter/llm/static"
	"github.com/sherpai/sherpai/internal/adapter/observability"
	"github.com/sherpai/sherpai/internal/adapter/webhook"
	"github.com/sherpai/sherpai/internal/config"
	"github.com/sherpai/sherpai/internal/usecase/dedup"
	"github.com/sherpai/sherpai/internal/usecase/review"
	"github.com/sherpai/sherpai/internal/usecase/trigger"
	"github.com/sherpai/sherpai/internal/version"
)

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "sherpai",
		EnvPrefix:   "SHERPAI",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	logger := buildLogger(cfg.Observability.Logging)
	var reviewLogger review.Logger
	if logger != nil {
		reviewLogger = observability.NewReviewLogger(logger)
	}

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Server:        &serverRunner{cfg: cfg, logger: reviewLogger},
		LocalReviewer: &localRunner{cfg: cfg, repoDir: repoDir, logger: reviewLogger},
		DefaultAddr:   cfg.Server.Addr,
		DefaultRepo:   repositoryName(repoDir),
		Version:       version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// serverRunner wires and runs the webhook service. Construction is deferred
// to Serve so `sherpai --version` and local mode never demand serve-only
// credentials.
type serverRunner struct {
	cfg    config.Config
	logger review.Logger
}

func (s *serverRunner) Serve(ctx context.Context, addr string) error {
	if err := s.cfg.ValidateForServe(); err != nil {
		return err
	}

	store, closeStore, err := buildStore(s.cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()

	githubClient := githubadapter.NewClient(s.cfg.GitHub.Token)
	if s.cfg.GitHub.BaseURL != "" {
		githubClient.SetBaseURL(s.cfg.GitHub.BaseURL)
	}
	if d, ok := parseDuration(s.cfg.HTTP.Timeout); ok {
		githubClient.SetTimeout(d)
	}
	if s.cfg.HTTP.MaxRetries > 0 {
		githubClient.SetMaxRetries(s.cfg.HTTP.MaxRetries)
	}
	if d, ok := parseDuration(s.cfg.HTTP.InitialBackoff); ok {
		githubClient.SetInitialBackoff(d)
	}
	poster := githubadapter.NewPoster(githubClient)

	orchestrator := review.NewOrchestrator(review.OrchestratorDeps{
		Generator:    buildGenerator(s.cfg.Generator, s.cfg.HTTP),
		Poster:       poster,
		Cache:        dedup.NewCache(store),
		Files:        poster,
		Logger:       s.logger,
		Instructions: s.cfg.Review.Instructions,
		TTLSeconds:   s.cfg.Cache.TTLSeconds,
	})

	gate := trigger.NewGate(store, orchestrator, poster, s.logger)
	gate.SetFlagTTL(time.Duration(s.cfg.Cache.FlagTTLSeconds) * time.Second)

	handler := webhook.NewHandler(s.cfg.Server.WebhookSecret, gate, githubClient, s.logger)

	server := &http.Server{
		Addr:              addr,
		Handler:           webhook.NewServeMux(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// localRunner wires the offline review path: local git diff in, terminal out.
type localRunner struct {
	cfg     config.Config
	repoDir string
	logger  review.Logger
}

func (l *localRunner) ReviewLocal(ctx context.Context, req review.LocalRequest) (review.Result, error) {
	if err := l.cfg.ValidateForLocal(); err != nil {
		return review.Result{}, err
	}

	store, closeStore, err := buildStore(l.cfg.Cache)
	if err != nil {
		return review.Result{}, err
	}
	defer closeStore()

	orchestrator := review.NewOrchestrator(review.OrchestratorDeps{
		Generator:    buildGenerator(l.cfg.Generator, l.cfg.HTTP),
		Poster:       console.NewPoster(),
		Cache:        dedup.NewCache(store),
		Logger:       l.logger,
		Instructions: l.cfg.Review.Instructions,
		TTLSeconds:   l.cfg.Cache.TTLSeconds,
	})

	reviewer := review.NewLocalReviewer(git.NewEngine(l.repoDir), orchestrator)
	return reviewer.ReviewLocal(ctx, req)
}

func buildLogger(cfg config.LoggingConfig) httpclient.Logger {
	if !cfg.Enabled {
		return nil
	}

	level := httpclient.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = httpclient.LogLevelDebug
	case "error":
		level = httpclient.LogLevelError
	}

	format := httpclient.LogFormatHuman
	if cfg.Format == "json" {
		format = httpclient.LogFormatJSON
	}

	return httpclient.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

func buildGenerator(cfg config.GeneratorConfig, httpCfg config.HTTPConfig) review.CommentGenerator {
	if cfg.Provider == "openrouter" {
		client := openrouter.NewHTTPClient(cfg.APIKey, cfg.Model)
		if cfg.BaseURL != "" {
			client.SetBaseURL(cfg.BaseURL)
		}
		if d, ok := parseDuration(httpCfg.Timeout); ok {
			client.SetTimeout(d)
		}
		if d, ok := parseDuration(httpCfg.InitialBackoff); ok {
			client.SetInitialBackoff(d)
		}
		return client
	}
	return static.NewGenerator()
}

func parseDuration(s string) (time.Duration, bool) {
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func buildStore(cfg config.CacheConfig) (dedup.KVStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		return redis.NewStore(cfg.RedisURL, cfg.RedisToken), func() {}, nil

	case "memory":
		return memory.NewStore(), func() {}, nil

	case "sqlite", "":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create cache directory: %w", err)
			}
		}
		store, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		return store, func() { store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func repositoryName(repoDir string) string {
	abs, err := filepath.Abs(repoDir)
	if err != nil {
		return "unknown"
	}
	return filepath.Base(abs)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "sherpai"))
	}
	return paths
}
