package subscriber

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/newsletter/pkg/logger"
)

// Source supplies the set of confirmed recipients at a point in time.
// The issue publisher calls it exactly once per publish; subscribers
// confirmed afterwards are not retroactively included in that issue.
type Source interface {
	ListConfirmed(ctx context.Context) ([]EmailAddress, error)
}

// Subscription status written by the (external) confirmation flow.
const statusConfirmed = "confirmed"

// PostgresSource reads confirmed recipients from the subscriptions relation.
type PostgresSource struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresSource creates a Source over the given pool. A nil logger
// disables logging.
func NewPostgresSource(pool *pgxpool.Pool, log *slog.Logger) *PostgresSource {
	if log == nil {
		log = logger.NewNope()
	}
	return &PostgresSource{pool: pool, log: log}
}

// ListConfirmed implements Source. Stored addresses that no longer pass
// validation are skipped with a warning rather than failing the whole
// publish: one historically bad row must not block delivery to everyone
// else.
func (s *PostgresSource) ListConfirmed(ctx context.Context) ([]EmailAddress, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email FROM subscriptions WHERE status = $1`, statusConfirmed)
	if err != nil {
		return nil, errors.Join(ErrListFailed, err)
	}
	defer rows.Close()

	var recipients []EmailAddress
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Join(ErrListFailed, err)
		}
		addr, err := ParseEmail(raw)
		if err != nil {
			s.log.Warn("skipping invalid stored subscriber address",
				slog.String("email", raw),
				slog.String("error", err.Error()),
			)
			continue
		}
		recipients = append(recipients, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrListFailed, err)
	}

	return recipients, nil
}

// StaticSource serves a fixed recipient list. Useful in tests and local
// development.
type StaticSource struct {
	recipients []EmailAddress
}

// NewStaticSource validates the given addresses and returns a fixed Source.
func NewStaticSource(addrs ...string) (*StaticSource, error) {
	recipients := make([]EmailAddress, 0, len(addrs))
	for _, a := range addrs {
		addr, err := ParseEmail(a)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, addr)
	}
	return &StaticSource{recipients: recipients}, nil
}

// ListConfirmed implements Source.
func (s *StaticSource) ListConfirmed(_ context.Context) ([]EmailAddress, error) {
	out := make([]EmailAddress, len(s.recipients))
	copy(out, s.recipients)
	return out, nil
}
