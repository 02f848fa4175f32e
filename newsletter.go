package newsletter

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/newsletter/pkg/db"
	"github.com/dmitrymomot/newsletter/pkg/delivery"
	"github.com/dmitrymomot/newsletter/pkg/idempotency"
	"github.com/dmitrymomot/newsletter/pkg/issue"
	"github.com/dmitrymomot/newsletter/pkg/logger"
	"github.com/dmitrymomot/newsletter/pkg/mailer"
	"github.com/dmitrymomot/newsletter/pkg/mailer/resend"
	"github.com/dmitrymomot/newsletter/pkg/subscriber"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config assembles the configuration of all subpackages. Fields carry env
// tags through the nested structs so they can be populated with any
// environment parser.
type Config struct {
	DB       db.Config
	Resend   resend.Config
	Delivery delivery.Config

	// Number of concurrent delivery loops Start runs. Defaults to 1.
	Workers int `env:"NEWSLETTER_WORKERS" envDefault:"1"`
}

// Service wires the idempotency store, issue publisher, and delivery
// workers over a single connection pool. Create one with New and release
// it with Close.
type Service struct {
	pool      *pgxpool.Pool
	log       *slog.Logger
	store     *idempotency.Store
	publisher *issue.Publisher
	sender    mailer.Sender

	deliveryCfg delivery.Config
	workerOpts  []delivery.Option
	workers     int

	mu      sync.Mutex
	started bool
	stop    context.CancelFunc
}

// New connects to PostgreSQL, applies the embedded migrations, and builds
// the service. The email transport defaults to Resend configured from
// cfg.Resend; override it with WithSender (tests use an in-process fake).
// The recipient list defaults to confirmed rows in the subscriptions
// table; override it with WithSource.
func New(ctx context.Context, cfg Config, opts ...Option) (*Service, error) {
	set := settings{}
	for _, opt := range opts {
		opt(&set)
	}
	if set.log == nil {
		set.log = logger.NewNope()
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("newsletter: embedded migrations: %w", err)
	}
	if err := db.Migrate(ctx, pool, migrations, "", set.log); err != nil {
		pool.Close()
		return nil, err
	}

	if set.sender == nil {
		set.sender = resend.New(cfg.Resend)
	}

	var source subscriber.Source = set.source
	if source == nil {
		source = subscriber.NewPostgresSource(pool, set.log)
	}

	store := idempotency.NewStore(pool)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Service{
		pool:        pool,
		log:         set.log,
		store:       store,
		publisher:   issue.NewPublisher(pool, source, store, issue.WithLogger(set.log)),
		sender:      set.sender,
		deliveryCfg: cfg.Delivery,
		workerOpts:  set.workerOpts,
		workers:     workers,
	}, nil
}

// Publish records a newsletter issue and enqueues one delivery task per
// confirmed subscriber, exactly once per (actor, idempotency key) pair.
// See issue.Publisher.Publish for the full contract.
func (s *Service) Publish(ctx context.Context, params issue.Params) (issue.Result, error) {
	return s.publisher.Publish(ctx, params)
}

// PublishMarkdown renders a Markdown body (with optional YAML frontmatter)
// and publishes the result.
func (s *Service) PublishMarkdown(ctx context.Context, params issue.MarkdownParams) (issue.Result, error) {
	return s.publisher.PublishMarkdown(ctx, params)
}

// Start runs the configured number of delivery loops and blocks until the
// context is cancelled or Stop is called. A clean shutdown returns nil.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.stop = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.started = false
		s.stop = nil
		s.mu.Unlock()
		cancel()
	}()

	s.log.InfoContext(ctx, "delivery workers starting", slog.Int("workers", s.workers))

	g, ctx := errgroup.WithContext(ctx)
	for range s.workers {
		w := s.newWorker()
		g.Go(func() error { return w.Run(ctx) })
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop cancels a running Start. It is safe to call when Start is not
// running.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
	}
}

// ProcessOne claims and processes at most one due delivery task. It is the
// single-pass alternative to Start for schedulers and deterministic tests.
func (s *Service) ProcessOne(ctx context.Context) (delivery.Outcome, error) {
	return s.newWorker().ProcessOne(ctx)
}

func (s *Service) newWorker() *delivery.Worker {
	opts := append([]delivery.Option{delivery.WithLogger(s.log)}, s.workerOpts...)
	return delivery.NewWorker(s.pool, s.sender, s.deliveryCfg, opts...)
}

// Healthcheck pings the database.
func (s *Service) Healthcheck(ctx context.Context) error {
	return db.Healthcheck(s.pool)(ctx)
}

// Close stops the workers and releases the connection pool.
func (s *Service) Close() {
	s.Stop()
	_ = db.Shutdown(s.pool)(context.Background())
}
