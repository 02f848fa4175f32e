//go:build integration

package delivery_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/newsletter/pkg/db"
	"github.com/dmitrymomot/newsletter/pkg/delivery"
	"github.com/dmitrymomot/newsletter/pkg/logger"
	"github.com/dmitrymomot/newsletter/pkg/mailer"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping PostgreSQL test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool, os.DirFS("../../migrations"), "", logger.NewNope()))

	_, err = pool.Exec(ctx, `TRUNCATE issue_delivery_queue, newsletter_issues, idempotency_records, subscriptions`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

// fakeSender records sends and fails on demand. Safe for concurrent use.
type fakeSender struct {
	mu       sync.Mutex
	sent     []*mailer.Email
	attempts map[string]int
	failures map[string]int // recipient -> remaining failures
	failAll  bool
	block    chan struct{} // when set, Send waits until the channel closes
}

func newFakeSender() *fakeSender {
	return &fakeSender{
		attempts: make(map[string]int),
		failures: make(map[string]int),
	}
}

func (f *fakeSender) Send(_ context.Context, email *mailer.Email) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts[email.To]++
	if f.failAll {
		return errors.New("smtp unreachable")
	}
	if f.failures[email.To] > 0 {
		f.failures[email.To]--
		return errors.New("transient provider error")
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeSender) attemptCount(to string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[to]
}

func (f *fakeSender) sentTo() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, e := range f.sent {
		out[i] = e.To
	}
	return out
}

func seedIssue(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO newsletter_issues (id, title, text_content, html_content)
		VALUES ($1, 'Hi', 't', '<p>h</p>')`, id)
	require.NoError(t, err)
	return id
}

func seedTask(t *testing.T, pool *pgxpool.Pool, issueID uuid.UUID, recipient string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		VALUES ($1, $2)`, issueID, recipient)
	require.NoError(t, err)
}

// makeDue rewinds execute_after so the task is claimable immediately,
// without touching retry_count.
func makeDue(t *testing.T, pool *pgxpool.Pool, issueID uuid.UUID, recipient string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		UPDATE issue_delivery_queue
		SET execute_after = now() - interval '1 second'
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		issueID, recipient)
	require.NoError(t, err)
}

func queueDepth(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()

	var n int
	require.NoError(t, pool.QueryRow(context.Background(),
		`SELECT count(*) FROM issue_delivery_queue`).Scan(&n))
	return n
}

func taskState(t *testing.T, pool *pgxpool.Pool, issueID uuid.UUID, recipient string) (int, time.Time) {
	t.Helper()

	var retries int
	var executeAfter time.Time
	require.NoError(t, pool.QueryRow(context.Background(), `
		SELECT retry_count, execute_after FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		issueID, recipient).Scan(&retries, &executeAfter))
	return retries, executeAfter
}

func TestWorker_ProcessOne_EmptyQueue(t *testing.T) {
	pool := newTestPool(t)
	w := delivery.NewWorker(pool, newFakeSender(), delivery.Config{})

	outcome, err := w.ProcessOne(context.Background())
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeQueueEmpty, outcome)
}

func TestWorker_DrainsQueueExactlyOnce(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sender := newFakeSender()
	w := delivery.NewWorker(pool, sender, delivery.Config{})

	issueID := seedIssue(t, pool)
	for _, r := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		seedTask(t, pool, issueID, r)
	}

	// Drive the single-pass entry point until it reports empty.
	processed := 0
	for {
		outcome, err := w.ProcessOne(ctx)
		require.NoError(t, err)
		if outcome == delivery.OutcomeQueueEmpty {
			break
		}
		processed++
		require.LessOrEqual(t, processed, 3, "queue must not grow")
	}

	assert.Equal(t, 3, processed)
	assert.Zero(t, queueDepth(t, pool))
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com", "c@example.com"}, sender.sentTo())

	// Issue content made it into the email.
	require.NotEmpty(t, sender.sent)
	assert.Equal(t, "Hi", sender.sent[0].Subject)
	assert.Equal(t, "<p>h</p>", sender.sent[0].HTML)
	assert.Equal(t, "t", sender.sent[0].Text)

	// Drained queue stays drained.
	outcome, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeQueueEmpty, outcome)
}

func TestWorker_TaskNotDueIsInvisible(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	w := delivery.NewWorker(pool, newFakeSender(), delivery.Config{})

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "a@example.com")
	_, err := pool.Exec(ctx, `
		UPDATE issue_delivery_queue SET execute_after = now() + interval '1 hour'`)
	require.NoError(t, err)

	outcome, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeQueueEmpty, outcome)
	assert.Equal(t, 1, queueDepth(t, pool))
}

func TestWorker_FailureReschedulesWithBackoff(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sender := newFakeSender()
	sender.failAll = true
	w := delivery.NewWorker(pool, sender, delivery.Config{MaxRetries: 5})

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "a@example.com")

	outcome, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeTaskProcessed, outcome)

	retries, after1 := taskState(t, pool, issueID, "a@example.com")
	assert.Equal(t, 1, retries)
	assert.True(t, after1.After(time.Now()), "rescheduled task must not be immediately due")

	// A second failed attempt pushes execute_after strictly further out.
	makeDue(t, pool, issueID, "a@example.com")
	_, err = w.ProcessOne(ctx)
	require.NoError(t, err)

	retries, after2 := taskState(t, pool, issueID, "a@example.com")
	assert.Equal(t, 2, retries)
	assert.True(t, after2.After(after1), "backoff must grow across consecutive retries")
}

func TestWorker_FailTwiceThenSucceed(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sender := newFakeSender()
	sender.failures["a@example.com"] = 2

	var delivered []delivery.Task
	w := delivery.NewWorker(pool, sender, delivery.Config{MaxRetries: 3},
		delivery.WithOnDelivered(func(task delivery.Task) {
			delivered = append(delivered, task)
		}),
	)

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "a@example.com")

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			makeDue(t, pool, issueID, "a@example.com")
		}
		outcome, err := w.ProcessOne(ctx)
		require.NoError(t, err)
		require.Equal(t, delivery.OutcomeTaskProcessed, outcome)
	}

	assert.Zero(t, queueDepth(t, pool))
	assert.Equal(t, 3, sender.attemptCount("a@example.com"))
	require.Len(t, delivered, 1)
	assert.Equal(t, 2, delivered[0].RetryCount, "success came after two recorded retries")
}

func TestWorker_AbandonsAfterRetryBudget(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sender := newFakeSender()
	sender.failAll = true

	var abandoned []error
	w := delivery.NewWorker(pool, sender, delivery.Config{MaxRetries: 3},
		delivery.WithOnAbandoned(func(_ delivery.Task, err error) {
			abandoned = append(abandoned, err)
		}),
	)

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "a@example.com")

	// Initial attempt plus three retries, then the fourth failure abandons.
	for attempt := 0; attempt < 4; attempt++ {
		if attempt > 0 {
			makeDue(t, pool, issueID, "a@example.com")
		}
		outcome, err := w.ProcessOne(ctx)
		require.NoError(t, err)
		require.Equal(t, delivery.OutcomeTaskProcessed, outcome)
	}

	assert.Zero(t, queueDepth(t, pool), "abandoned task must be removed")
	assert.Equal(t, 4, sender.attemptCount("a@example.com"))
	require.Len(t, abandoned, 1)
	assert.ErrorIs(t, abandoned[0], delivery.ErrRetryBudgetExhausted)

	// No fifth attempt.
	outcome, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeQueueEmpty, outcome)
	assert.Equal(t, 4, sender.attemptCount("a@example.com"))
}

func TestWorker_InvalidStoredRecipientIsAbandoned(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	sender := newFakeSender()

	var abandoned []error
	w := delivery.NewWorker(pool, sender, delivery.Config{},
		delivery.WithOnAbandoned(func(_ delivery.Task, err error) {
			abandoned = append(abandoned, err)
		}),
	)

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "not-an-email")

	outcome, err := w.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, delivery.OutcomeTaskProcessed, outcome)
	assert.Zero(t, queueDepth(t, pool))
	assert.Zero(t, sender.attemptCount("not-an-email"), "no send attempt for an invalid address")
	require.Len(t, abandoned, 1)
	assert.ErrorIs(t, abandoned[0], delivery.ErrInvalidRecipient)
}

func TestWorker_ConcurrentClaimsAreDisjoint(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	// Both sends park inside the transport while both rows stay locked; if
	// the claims overlapped, one recipient would be sent twice.
	sender := newFakeSender()
	sender.block = make(chan struct{})

	issueID := seedIssue(t, pool)
	seedTask(t, pool, issueID, "a@example.com")
	seedTask(t, pool, issueID, "b@example.com")

	w1 := delivery.NewWorker(pool, sender, delivery.Config{})
	w2 := delivery.NewWorker(pool, sender, delivery.Config{})

	var wg sync.WaitGroup
	outcomes := make(chan delivery.Outcome, 2)
	for _, w := range []*delivery.Worker{w1, w2} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := w.ProcessOne(ctx)
			assert.NoError(t, err)
			outcomes <- outcome
		}()
	}

	time.Sleep(200 * time.Millisecond) // both workers reach the transport
	close(sender.block)
	wg.Wait()

	assert.Equal(t, delivery.OutcomeTaskProcessed, <-outcomes)
	assert.Equal(t, delivery.OutcomeTaskProcessed, <-outcomes)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, sender.sentTo())
	assert.Equal(t, 1, sender.attemptCount("a@example.com"))
	assert.Equal(t, 1, sender.attemptCount("b@example.com"))
	assert.Zero(t, queueDepth(t, pool))
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	pool := newTestPool(t)
	sender := newFakeSender()
	w := delivery.NewWorker(pool, sender, delivery.Config{PollInterval: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}
