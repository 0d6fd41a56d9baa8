package lifeline

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/bloodbridge/lifeline/core"
	"github.com/bloodbridge/lifeline/domain"
)

// ReplayFunc replays one queued mutation against the network. A nil error
// confirms delivery and consumes the record.
type ReplayFunc func(ctx context.Context, rec *domain.MutationRecord) error

// MutationQueue records mutating operations attempted while offline and
// replays them once connectivity is restored. Replay is at-least-once: the
// target must be idempotent or tolerate duplicate submission; that contract
// belongs to the caller, not the queue.
type MutationQueue struct {
	Repo   domain.MutationRepository // Durable backing for queued records
	Client *http.Client              // HTTP client used by the default replay
	Log    LogFunc

	// MaxAttempts bounds the retries per record within one trigger cycle.
	MaxAttempts uint64
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration

	mu       sync.Mutex
	handlers map[string]ReplayFunc
}

// NewMutationQueue creates a queue with bounded exponential backoff defaults.
func NewMutationQueue(repo domain.MutationRepository, client *http.Client, log LogFunc) *MutationQueue {
	return &MutationQueue{
		Repo:        repo,
		Client:      client,
		Log:         log,
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		handlers:    make(map[string]ReplayFunc),
	}
}

// Register enables deferral for a mutation tag. A nil handler installs the
// default live-fetch replay.
func (q *MutationQueue) Register(tag string, handler ReplayFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if handler == nil {
		handler = q.Replay
	}
	q.handlers[tag] = handler
}

// Enabled reports whether deferral is registered for the tag.
func (q *MutationQueue) Enabled(tag string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.handlers[tag]
	return ok
}

// Enqueue appends the failed mutation durably. The payload is the request
// body, captured before the failed send.
func (q *MutationQueue) Enqueue(req *http.Request, payload []byte, tag string) (*domain.MutationRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating uuid for mutation : %w", err)
	}

	rec := &domain.MutationRecord{
		ID:          id,
		Tag:         tag,
		Method:      req.Method,
		URL:         NormalizeURL(req.URL),
		ContentType: req.Header.Get("Content-Type"),
		Payload:     payload,
		EnqueuedAt:  time.Now(),
	}

	if err := q.Repo.EnqueueMutation(rec); err != nil {
		return nil, fmt.Errorf("enqueueing mutation for tag %s : %w", tag, err)
	}

	q.Log("INFO", fmt.Sprintf("mutation deferred for tag %s", tag), core.LogWithRecordID(rec.ID))
	return rec, nil
}

// Replay is the default replay: the original request is rebuilt from the
// record and sent live. Any non-success status is a failed replay.
func (q *MutationQueue) Replay(ctx context.Context, rec *domain.MutationRecord) error {
	req, err := http.NewRequestWithContext(ctx, rec.Method, rec.URL, nil)
	if err != nil {
		return fmt.Errorf("rebuilding request for mutation %s : %w", rec.ID, err)
	}
	if rec.ContentType != "" {
		req.Header.Set("Content-Type", rec.ContentType)
	}

	res, err := q.Client.Do(outboundRequest(req, rec.Payload))
	if err != nil {
		return fmt.Errorf("replaying mutation %s : %w", rec.ID, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("replaying mutation %s : unexpected status %s", rec.ID, res.Status)
	}
	return nil
}

// Sync is the connectivity-restored trigger for one tag. Queued records are
// replayed in FIFO order with bounded exponential backoff per record; a
// record is removed only on confirmed success. A record that exhausts its
// attempts stays queued and stops the cycle, preserving order for the next
// trigger; no record is replayed twice within a single cycle after success.
func (q *MutationQueue) Sync(ctx context.Context, tag string) error {
	q.mu.Lock()
	handler, ok := q.handlers[tag]
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("no replay handler registered for tag %s", tag)
	}

	recs, err := q.Repo.ListMutations(tag)
	if err != nil {
		return fmt.Errorf("listing mutations for tag %s : %w", tag, err)
	}

	for _, rec := range recs {
		backoff := retry.WithMaxRetries(q.MaxAttempts, retry.NewExponential(q.BaseDelay))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if replayErr := handler(ctx, rec); replayErr != nil {
				return retry.RetryableError(replayErr)
			}
			return nil
		})
		if err != nil {
			q.Log("WARN", "replay failed, record retained for next trigger: "+err.Error(),
				core.LogWithRecordID(rec.ID))
			return fmt.Errorf("replaying tag %s : %w", tag, err)
		}

		if err := q.Repo.DeleteMutation(rec.ID); err != nil {
			// The record will be replayed again next trigger; the target must
			// tolerate the duplicate.
			q.Log("ERROR", "consuming replayed record failed: "+err.Error(), core.LogWithRecordID(rec.ID))
			return fmt.Errorf("consuming mutation %s : %w", rec.ID, err)
		}
		q.Log("INFO", fmt.Sprintf("mutation replayed for tag %s", tag), core.LogWithRecordID(rec.ID))
	}
	return nil
}
