package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/postline/postline/internal/gql"
	"github.com/postline/postline/internal/mongodb"
	"github.com/postline/postline/internal/posts"
	"github.com/postline/postline/internal/pubsub"
)

// Runtime owns every long-lived resource of one server process. NewRuntime
// connects everything up front so a misconfigured environment fails at boot,
// not on the first request.
type Runtime struct {
	cfg    Config
	logger *logrus.Entry

	mongo  *mongodb.Client
	redis  *redis.Client
	server *http.Server
}

func NewRuntime(ctx context.Context, cfg Config) (*Runtime, error) {
	log := logrus.New()
	log.SetLevel(cfg.Log.ParsedLevel())
	log.SetFormatter(&logrus.JSONFormatter{})
	logger := logrus.NewEntry(log).WithField("service", "postline")

	mongoClient, err := mongodb.Connect(ctx, mongodb.Config{
		URL:      cfg.Mongo.URL,
		Database: cfg.Mongo.Database,
		User:     cfg.Mongo.User,
		Pass:     cfg.Mongo.Pass,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := mongoClient.Ping(ctx); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, err
	}

	svc := posts.NewService(posts.NewStore(mongoClient.Collection(&posts.Post{})))
	bus := pubsub.NewRedisBus(redisClient, logger)

	schema, err := gql.NewSchema(gql.Config{
		Posts:  svc,
		Bus:    bus,
		Logger: logger,
	})
	if err != nil {
		_ = redisClient.Close()
		_ = mongoClient.Disconnect(ctx)
		return nil, err
	}

	rt := &Runtime{
		cfg:    cfg,
		logger: logger,
		mongo:  mongoClient,
		redis:  redisClient,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(rt.requestLogger)

	router.Method(http.MethodPost, "/graphql", gql.NewHandler(schema, logger))
	router.Method(http.MethodGet, "/graphql", gql.NewSubscriptionHandler(schema, logger))
	router.Get("/healthz", rt.healthz)

	rt.server = &http.Server{
		Addr:    cfg.Server.Bind,
		Handler: router,
	}

	return rt, nil
}

// Run serves until the context is cancelled or a signal lands, then drains
// in-flight requests and releases connections in reverse acquisition order.
func (rt *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 1)
	go func() {
		rt.logger.Infof("listening on %s", rt.server.Addr)
		if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := rt.server.Shutdown(shutdownCtx)

	if cerr := rt.redis.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if derr := rt.mongo.Disconnect(shutdownCtx); derr != nil && err == nil {
		err = derr
	}

	return err
}

func (rt *Runtime) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.WithFields(logrus.Fields{
			"method":  r.Method,
			"path":    r.URL.Path,
			"status":  ww.Status(),
			"elapsed": time.Since(start).String(),
		}).Info("request")
	})
}

func (rt *Runtime) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.mongo.Ping(ctx, 2*time.Second); err != nil {
		rt.logger.Warnf("health check failed: mongo: %v", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	if err := rt.redis.Ping(ctx).Err(); err != nil {
		rt.logger.Warnf("health check failed: redis: %v", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
