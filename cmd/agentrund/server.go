package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/automateai/agentrun/config"
	"github.com/automateai/agentrun/connector"
	"github.com/automateai/agentrun/engine"
	"github.com/automateai/agentrun/internal/metrics"
	"github.com/automateai/agentrun/llm"
	"github.com/automateai/agentrun/llm/providers/anthropic"
	"github.com/automateai/agentrun/llm/providers/google"
	"github.com/automateai/agentrun/llm/providers/openai"
	"github.com/automateai/agentrun/llm/retry"
	"github.com/automateai/agentrun/queue"
	"github.com/automateai/agentrun/types"
)

// Server wires the engine, queue and HTTP surface together.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	engine  *engine.Engine
	queue   *queue.Queue
	store   qStoreCloser
	metrics *metrics.Collector
}

// qStoreCloser is the store plus the optional Close of the Redis variant.
type qStoreCloser struct {
	queue.Store
	close func() error
}

// NewServer builds all components from configuration.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	collector := metrics.NewCollector("agentrun", logger)

	manager := buildManager(cfg, collector, logger)

	registry := connector.NewRegistry(logger, connector.WithMetrics(collector))
	registry.Register(connector.NewHTTPConnector(logger))
	registry.Register(connector.NewEmailConnector(nil, logger))

	eng := engine.New(manager, registry, logger, engine.WithMetrics(collector))

	store := qStoreCloser{Store: queue.NewMemoryStore()}
	if cfg.Queue.Redis.Addr != "" {
		rs, err := queue.NewRedisStore(queue.RedisConfig{
			Addr:      cfg.Queue.Redis.Addr,
			Password:  cfg.Queue.Redis.Password,
			DB:        cfg.Queue.Redis.DB,
			KeyPrefix: cfg.Queue.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		store = qStoreCloser{Store: rs, close: rs.Close}
		logger.Info("using redis job store", zap.String("addr", cfg.Queue.Redis.Addr))
	}

	q := queue.New(store, eng, logger,
		queue.WithConcurrency(cfg.Queue.Concurrency),
		queue.WithMaxAttempts(cfg.Queue.MaxAttempts),
		queue.WithBackoff(&retry.Policy{
			MaxRetries:   cfg.Queue.MaxAttempts,
			InitialDelay: cfg.Queue.RetryBackoff,
			MaxDelay:     time.Minute,
			Multiplier:   2.0,
		}))

	return &Server{
		cfg:     cfg,
		logger:  logger,
		engine:  eng,
		queue:   q,
		store:   store,
		metrics: collector,
	}, nil
}

func buildManager(cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *llm.Manager {
	opts := []llm.ManagerOption{
		llm.WithMetrics(collector),
		llm.WithRetryPolicy(retry.DefaultPolicy()),
	}
	if rpm := cfg.LLM.RequestsPerMinute; rpm > 0 {
		for _, name := range llm.DefaultFallbackOrder {
			opts = append(opts, llm.WithRateLimit(name, float64(rpm)/60, rpm))
		}
	}
	manager := llm.NewManager(logger, opts...)

	if key := cfg.LLM.Anthropic.APIKey; key != "" {
		manager.Register(anthropic.New(anthropic.Config{
			APIKey:  key,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger))
	}
	if key := cfg.LLM.OpenAI.APIKey; key != "" {
		manager.Register(openai.New(openai.Config{
			APIKey:  key,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger))
	}
	if key := cfg.LLM.Google.APIKey; key != "" {
		manager.Register(google.New(google.Config{
			APIKey:  key,
			BaseURL: cfg.LLM.Google.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger))
	}

	if len(manager.Available()) == 0 {
		logger.Warn("no AI provider configured, ai nodes will use the heuristic provider")
	}
	return manager
}

// Run starts the HTTP and metrics listeners plus the queue workers and blocks
// until a termination signal arrives.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s.queue.Start(ctx)

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		Handler:      s.routes(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		Handler:      metricsMux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.logger.Info("metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s.publishQueueMetrics(gctx)
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
		s.queue.Stop()
		if s.store.close != nil {
			if err := s.store.close(); err != nil {
				s.logger.Error("job store close error", zap.Error(err))
			}
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) publishQueueMetrics(ctx context.Context) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return
	}
	s.metrics.SetQueueJobs(map[string]int{
		"waiting":   stats.Waiting,
		"active":    stats.Active,
		"completed": stats.Completed,
		"failed":    stats.Failed,
		"delayed":   stats.Delayed,
	})
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /health", s.handleHealthz)

	mux.HandleFunc("POST /api/agents/validate", s.handleValidate)
	mux.HandleFunc("POST /api/agents/execute", s.handleExecute)
	mux.HandleFunc("POST /api/agents/execute-async", s.handleExecuteAsync)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /api/jobs/{id}", s.handleCancelJob)
	mux.HandleFunc("GET /api/queue/stats", s.handleQueueStats)
	mux.HandleFunc("POST /api/queue/pause", s.handleQueuePause)
	mux.HandleFunc("POST /api/queue/resume", s.handleQueueResume)
	mux.HandleFunc("POST /api/queue/clean", s.handleQueueClean)
	return mux
}

type executeRequest struct {
	Agent  *types.Agent   `json:"agent"`
	Input  map[string]any `json:"input"`
	UserID string         `json:"userId,omitempty"`
	// DelaySeconds only applies to async submissions.
	DelaySeconds int `json:"delaySeconds,omitempty"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrValidation, "malformed request body").WithCause(err))
		return
	}
	if req.Agent == nil {
		writeError(w, types.NewError(types.ErrValidation, "agent is required"))
		return
	}

	resp := map[string]any{"valid": true}
	if err := engine.ValidateGraph(req.Agent); err != nil {
		resp["valid"] = false
		resp["error"] = err.Error()
	}
	if warnings := engine.Lint(req.Agent); len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrValidation, "malformed request body").WithCause(err))
		return
	}
	if req.Agent == nil {
		writeError(w, types.NewError(types.ErrValidation, "agent is required"))
		return
	}

	start := time.Now()
	result, err := s.engine.Execute(r.Context(), req.Agent, req.Input, engine.Options{
		UserID:  req.UserID,
		Timeout: s.cfg.Engine.ExecutionTimeout,
	})
	if err != nil {
		s.metrics.RecordExecution(req.Agent.ID, "error", time.Since(start))
		writeError(w, err)
		return
	}
	status := "failed"
	if result.Success {
		status = "completed"
	}
	s.metrics.RecordExecution(req.Agent.ID, status, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExecuteAsync(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, types.NewError(types.ErrValidation, "malformed request body").WithCause(err))
		return
	}
	if req.Agent == nil {
		writeError(w, types.NewError(types.ErrValidation, "agent is required"))
		return
	}

	job, err := s.queue.Enqueue(r.Context(), req.Agent, req.Input, queue.EnqueueOptions{
		UserID: req.UserID,
		Delay:  time.Duration(req.DelaySeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{
		"jobId":  job.ID,
		"status": job.Status,
	}
	if stats, err := s.queue.Stats(r.Context()); err == nil {
		resp["estimatedWaitTime"] = estimateWait(stats, s.cfg.Queue.Concurrency)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// estimateWait guesses how long a fresh job sits in the queue, assuming runs
// average around thirty seconds. It is a UX hint, not a promise.
func estimateWait(stats *queue.Stats, concurrency int) string {
	if concurrency <= 0 {
		concurrency = queue.DefaultConcurrency
	}
	ahead := stats.Waiting + stats.Active
	secs := ahead * 30 / concurrency
	if secs < 5 {
		return "a few seconds"
	}
	return (time.Duration(secs) * time.Second).String()
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.queue.Cancel(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"jobId": id, "status": "canceled"})
}

func (s *Server) handleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queue.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleQueuePause(w http.ResponseWriter, _ *http.Request) {
	s.queue.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) handleQueueResume(w http.ResponseWriter, _ *http.Request) {
	s.queue.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func (s *Server) handleQueueClean(w http.ResponseWriter, r *http.Request) {
	grace := time.Hour
	if v := r.URL.Query().Get("grace"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, types.NewError(types.ErrValidation, "invalid grace duration"))
			return
		}
		grace = d
	}
	removed, err := s.queue.Clean(r.Context(), grace)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := string(types.ErrInternal)
	message := err.Error()

	retryable := false
	var appErr *types.Error
	if errors.As(err, &appErr) {
		code = string(appErr.Kind)
		retryable = appErr.Retryable
		switch appErr.Kind {
		case types.ErrValidation, types.ErrGraphValidation:
			status = http.StatusBadRequest
		case types.ErrAIProvider:
			status = http.StatusBadGateway
		case types.ErrConnectorNotFound:
			status = http.StatusNotFound
		}
		// HTTPStatus on provider errors is the upstream status code. That
		// must not become this service's own response status.
		if appErr.HTTPStatus != 0 && appErr.Provider == "" {
			status = appErr.HTTPStatus
		}
	}
	if errors.Is(err, queue.ErrJobNotFound) {
		status = http.StatusNotFound
	}

	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":      code,
			"message":   message,
			"retryable": retryable,
		},
	})
}
