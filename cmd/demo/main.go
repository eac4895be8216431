package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go-user-console/internal/core/auth"
	"go-user-console/internal/core/config"
	"go-user-console/internal/core/logger"
	"go-user-console/internal/core/metrics"
	"go-user-console/internal/domain"
	"go-user-console/internal/repo"
	"go-user-console/internal/state"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	l, cleanup := logger.New(logger.FromConfig(cfg.Log))
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	if err := run(ctx, cfg, l, reg); err != nil {
		l.Error("demo session failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	l.Info("demo session finished")
}

func newStore(cfg *config.Config, l *zap.Logger, reg prometheus.Registerer) (*repo.MemoryStore, error) {
	cred, err := repo.NewCredential(cfg.Backend.Demo.Email, cfg.Backend.Demo.Password, cfg.Backend.BcryptCost)
	if err != nil {
		return nil, err
	}
	var tokens auth.Issuer = auth.DemoToken
	if cfg.JWT.Secret != "" {
		tokens = &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL}
	}

	seed := repo.SeedUsers()
	if len(cfg.Seed) > 0 {
		seed = make([]domain.User, 0, len(cfg.Seed))
		for _, u := range cfg.Seed {
			seed = append(seed, domain.User{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Avatar: u.Avatar})
		}
	}

	return repo.NewMemoryStore(seed,
		repo.WithLogger(l.Named("store")),
		repo.WithMetrics(metrics.NewStoreMetrics(reg)),
		repo.WithLatency(repo.Latency{
			Login:  cfg.Backend.Latency.Login,
			List:   cfg.Backend.Latency.List,
			Mutate: cfg.Backend.Latency.Mutate,
		}),
		repo.WithPerPage(cfg.Backend.PerPage),
		repo.WithTokens(tokens),
		repo.WithCredential(cred),
		repo.WithFailureRate(cfg.Backend.FailureRate, nil),
	)
}

// run walks one scripted session through the container: sign in, page,
// search, then create, edit and delete a record.
func run(ctx context.Context, cfg *config.Config, l *zap.Logger, reg *prometheus.Registry) error {
	store, err := newStore(cfg, l, reg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	c := state.New(store, state.WithLogger(l.Named("state")), state.WithPerPage(cfg.Backend.PerPage))
	defer c.Subscribe(func(s state.AppState) {
		l.Debug("state",
			zap.Bool("authenticated", s.Session.IsAuthenticated),
			zap.Bool("loading", s.Loading),
			zap.Int("page", s.Page),
			zap.Int("total_pages", s.TotalPages),
			zap.Int("records", len(s.Records)),
			zap.String("error", s.Error),
		)
	})()

	l.Info("session starting", zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	if err := c.Login(ctx, cfg.Backend.Demo.Email, cfg.Backend.Demo.Password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.LoadPage(ctx, 1); err != nil {
		return fmt.Errorf("load page: %w", err)
	}
	logPage(l, c.Snapshot())

	c.Dispatch(state.SetSearchText{Text: "wong"})
	for _, u := range c.Visible() {
		l.Info("search hit", zap.String("q", "wong"), zap.Int64("id", u.ID), zap.String("email", u.Email))
	}
	c.Dispatch(state.SetSearchText{Text: ""})
	c.Dispatch(state.SetViewMode{Mode: state.ViewGrid})

	// Create while the user pages forward; whichever listing request is
	// issued last wins.
	var created *domain.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.CreateUser(gctx, domain.UserInput{FirstName: "Morpheus", LastName: "Leader", Email: "morpheus@reqres.in"})
		created = u
		return err
	})
	g.Go(func() error { return c.LoadPage(gctx, 2) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := c.Reload(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	logPage(l, c.Snapshot())

	job := "Zion Resident"
	if _, err := c.EditUser(ctx, created.ID, domain.UserPatch{LastName: &job}); err != nil {
		return fmt.Errorf("edit: %w", err)
	}
	if _, err := c.RemoveUser(ctx, created.ID); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if ok, err := c.RemoveUser(ctx, created.ID); err != nil || ok {
		return fmt.Errorf("second remove: ok=%v err=%v", ok, err)
	}

	c.Logout()
	logMetrics(l, reg)
	return nil
}

func logPage(l *zap.Logger, s state.AppState) {
	l.Info("page", zap.Int("page", s.Page), zap.Int("of", s.TotalPages), zap.Int("records", len(s.Records)))
	for _, u := range s.Records {
		l.Info("user", zap.Int64("id", u.ID), zap.String("name", u.FirstName+" "+u.LastName), zap.String("email", u.Email))
	}
}

func logMetrics(l *zap.Logger, reg *prometheus.Registry) {
	mfs, err := reg.Gather()
	if err != nil {
		l.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := make([]zap.Field, 0, len(m.GetLabel())+2)
			labels = append(labels, zap.String("metric", mf.GetName()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, zap.String(lp.GetName(), lp.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				labels = append(labels, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetGauge() != nil:
				labels = append(labels, zap.Float64("value", m.GetGauge().GetValue()))
			case m.GetHistogram() != nil:
				labels = append(labels, zap.Uint64("count", m.GetHistogram().GetSampleCount()))
			}
			l.Info("metric", labels...)
		}
	}
}
