package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/legiscan-client/internal/config"
	"github.com/Sternrassler/legiscan-client/pkg/cache"
	"github.com/Sternrassler/legiscan-client/pkg/client"
	"github.com/Sternrassler/legiscan-client/pkg/coalesce"
	"github.com/Sternrassler/legiscan-client/pkg/legiscan"
	"github.com/Sternrassler/legiscan-client/pkg/logging"
	"github.com/Sternrassler/legiscan-client/pkg/metrics"
	"github.com/Sternrassler/legiscan-client/pkg/prefetch"
	"github.com/Sternrassler/legiscan-client/pkg/quota"
	"github.com/Sternrassler/legiscan-client/pkg/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	help := flag.Bool("help", false, "print the environment variables and exit")
	flag.Parse()
	if *help {
		desc, err := config.Description()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(desc)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger(logging.ComponentProxy)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Proxy stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx := context.Background()

	var redisClient *redis.Client
	if cfg.Cache.Backend == config.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		defer redisClient.Close()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	store, err := openStore(cfg, redisClient)
	if err != nil {
		return err
	}

	var counter quota.Counter = quota.NewMemoryCounter()
	if redisClient != nil {
		counter = quota.NewRedisCounter(redisClient)
	}
	tracker := quota.NewTracker(counter, cfg.LegiScan.MonthlyQuota, logging.NewLogger(logging.ComponentQuota))

	policies, err := cfg.Policies()
	if err != nil {
		return err
	}

	svc, err := service.New(service.Options{
		APIKey:   cfg.LegiScan.APIKey,
		BaseURL:  cfg.LegiScan.BaseURL,
		Quota:    tracker,
		Store:    store,
		Policies: policies,
	})
	if err != nil {
		return err
	}

	p := &proxy{
		svc:    svc,
		quota:  tracker,
		warmer: prefetch.NewWarmer(svc, prefetch.Config{MaxConcurrency: cfg.Server.PrefetchConcurrency}),
		redis:  redisClient,
		logger: logger,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           p.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("backend", cfg.Cache.Backend).
			Msg("Starting LegiScan proxy server")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(cfg config.Config, redisClient *redis.Client) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case config.BackendRedis:
		return cache.NewRedisStore(redisClient), nil
	case config.BackendMemory:
		return cache.NewMemoryStore(), nil
	default:
		dir := cfg.Cache.Dir
		if dir == "" {
			var err error
			if dir, err = service.DefaultCacheDir(); err != nil {
				return nil, err
			}
		}
		return cache.NewFileStore(dir)
	}
}

type proxy struct {
	svc    *service.Service
	quota  *quota.Tracker
	warmer *prefetch.Warmer
	redis  *redis.Client
	group  coalesce.Group
	logger zerolog.Logger
}

func (p *proxy) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", p.readyHandler)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/quota", p.quotaHandler)
	mux.HandleFunc("/warm", p.warmHandler)
	mux.HandleFunc("/api/", p.apiHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (p *proxy) readyHandler(w http.ResponseWriter, r *http.Request) {
	if p.redis != nil {
		if err := p.redis.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (p *proxy) quotaHandler(w http.ResponseWriter, r *http.Request) {
	state, err := p.quota.GetState(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(struct {
		quota.State
		Remaining int64 `json:"remaining"`
	}{State: state, Remaining: state.Remaining()})
}

// warmHandler loads every bill of ?session= into the cache.
func (p *proxy) warmHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "use POST", http.StatusMethodNotAllowed)
		return
	}
	sessionID, err := strconv.Atoi(r.URL.Query().Get("session"))
	if err != nil || sessionID <= 0 {
		http.Error(w, "session must be a positive integer", http.StatusBadRequest)
		return
	}

	result, err := p.warmer.WarmSession(r.Context(), sessionID)
	if result == nil {
		writeError(w, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]int{
		"total":  result.Total,
		"warmed": result.Warmed,
		"failed": len(result.Failed),
	})
}

type apiResult struct {
	body        []byte
	contentType string
}

// apiHandler serves LegiScan-style requests (/api/?op=getBill&id=1) from
// the cache. Concurrent identical requests share one upstream call.
func (p *proxy) apiHandler(w http.ResponseWriter, r *http.Request) {
	req, err := client.RequestFromQuery(r.URL.RawQuery)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid query: %v", err), http.StatusBadRequest)
		return
	}
	key, err := req.CacheKey()
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	v, shared, err := p.group.Do(ctx, key, func(ctx context.Context) (any, error) {
		return p.serve(ctx, req)
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("Request failed")
		writeError(w, err)
		return
	}

	res := v.(*apiResult)
	w.Header().Set("Content-Type", res.contentType)
	if shared {
		w.Header().Set("X-Coalesced", "true")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.body)
}

func (p *proxy) serve(ctx context.Context, req client.Request) (*apiResult, error) {
	switch req.Op {
	case "getDatasetRaw", "getDataset":
		sessionID, err := strconv.Atoi(req.Params["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: id must be an integer", cache.ErrInvalidKey)
		}
		id := service.DatasetIdentity{
			SessionID: sessionID,
			AccessKey: req.Params["access_key"],
			Format:    req.Params["format"],
		}

		if req.Op == "getDatasetRaw" {
			data, err := p.svc.DatasetRaw(ctx, id)
			if err != nil {
				return nil, err
			}
			return &apiResult{body: data, contentType: "application/zip"}, nil
		}

		ds, err := p.svc.Dataset(ctx, id)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(ds)
		if err != nil {
			return nil, err
		}
		return jsonResult(legiscan.NewResponse(legiscan.FieldDataset, payload))
	}

	resp, err := p.svc.GetOp(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(resp)
}

func jsonResult(resp *legiscan.Response) (*apiResult, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return &apiResult{body: body, contentType: "application/json"}, nil
}

// writeError maps errors onto HTTP statuses with a LegiScan-style body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, cache.ErrInvalidKey), errors.Is(err, client.ErrMissingOp):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDatasetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, quota.ErrQuotaExhausted):
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(legiscan.Response{
		Status: legiscan.StatusError,
		Alert:  &legiscan.Alert{Message: err.Error()},
	})
}
