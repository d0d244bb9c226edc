// Package repository mirrors bounty and submission state from the remote
// ledger into an in-memory cache. It is the single source of truth for the
// presentation layer; nothing else mutates the cache.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
	"bounty-board/internal/domain"
	"bounty-board/internal/observability"
)

// ErrRecordUnavailable is returned when a single-record fetch cannot
// assemble a complete bounty. No partial record is ever returned.
var ErrRecordUnavailable = errors.New("record unavailable")

// DefaultConcurrency bounds the per-record fan-out of FetchAll.
const DefaultConcurrency = 8

// Ledger is the read surface the repository needs. *chain.Gateway satisfies
// it; tests use the stub contract.
type Ledger interface {
	TotalBounties(ctx context.Context) (uint64, error)
	BountyCore(ctx context.Context, id uint64) (chain.BountyCore, error)
	BountyText(ctx context.Context, id uint64) (chain.BountyText, error)
	BountyWinner(ctx context.Context, id uint64) (chain.BountyWinner, error)
	Counts(ctx context.Context, id uint64) (uint64, error)
	SubmissionCore(ctx context.Context, id, index uint64) (chain.SubmissionCore, error)
	HasSubmitted(ctx context.Context, id uint64, addr common.Address) (bool, error)
}

// Repository caches bounty records fetched from the ledger.
//
// The cache is replaced wholesale by FetchAll: whichever call completes last
// owns the cache, and readers never observe a partially written set.
type Repository struct {
	ledger      Ledger
	concurrency int
	logger      *log.Logger
	metrics     *observability.Metrics

	mu       sync.RWMutex
	bounties []domain.Bounty
}

// Options for creating a Repository.
type Options struct {
	// Ledger is required.
	Ledger Ledger
	// Concurrency bounds FetchAll fan-out. Defaults to DefaultConcurrency.
	Concurrency int
	// Logger receives skipped-record notices. Defaults to the standard logger.
	Logger  *log.Logger
	Metrics *observability.Metrics
}

// New creates a Repository.
func New(opts Options) *Repository {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Repository{
		ledger:      opts.Ledger,
		concurrency: concurrency,
		logger:      logger,
		metrics:     opts.Metrics,
	}
}

// FetchAll reads the total bounty count and fetches every record with
// bounded parallelism. A record that fails to fetch is logged and omitted;
// the batch itself only fails if the count read fails. On success the cache
// is replaced with the fetched set and a copy is returned.
func (r *Repository) FetchAll(ctx context.Context) ([]domain.Bounty, error) {
	start := time.Now()

	total, err := r.ledger.TotalBounties(ctx)
	if err != nil {
		return nil, fmt.Errorf("read bounty count: %w", err)
	}

	slots := make([]*domain.Bounty, total)
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i := uint64(0); i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(id uint64) {
			defer wg.Done()
			defer func() { <-sem }()

			b, err := r.FetchOne(ctx, id)
			if err != nil {
				r.logger.Printf("[repository] skipping bounty %d: %v", id, err)
				if r.metrics != nil {
					r.metrics.FetchesSkipped.Inc()
				}
				return
			}
			slots[id] = &b
		}(i)
	}
	wg.Wait()

	fetched := make([]domain.Bounty, 0, total)
	for _, b := range slots {
		if b != nil {
			fetched = append(fetched, *b)
		}
	}

	r.mu.Lock()
	r.bounties = fetched
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.FetchDuration.WithLabelValues("fetch_all").Observe(time.Since(start).Seconds())
		r.metrics.CacheSize.Set(float64(len(fetched)))
	}

	return cloneAll(fetched), nil
}

// FetchOne assembles one bounty from its four read queries, issued
// concurrently. If any query fails, the whole fetch fails with
// ErrRecordUnavailable and no partial record is returned.
func (r *Repository) FetchOne(ctx context.Context, id uint64) (domain.Bounty, error) {
	var (
		core   chain.BountyCore
		text   chain.BountyText
		winner chain.BountyWinner
		count  uint64

		coreErr, textErr, winnerErr, countErr error
	)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); core, coreErr = r.ledger.BountyCore(ctx, id) }()
	go func() { defer wg.Done(); text, textErr = r.ledger.BountyText(ctx, id) }()
	go func() { defer wg.Done(); winner, winnerErr = r.ledger.BountyWinner(ctx, id) }()
	go func() { defer wg.Done(); count, countErr = r.ledger.Counts(ctx, id) }()
	wg.Wait()

	for _, err := range []error{coreErr, textErr, winnerErr, countErr} {
		if err != nil {
			return domain.Bounty{}, fmt.Errorf("%w: bounty %d: %v", ErrRecordUnavailable, id, err)
		}
	}

	return domain.Bounty{
		ID:              core.ID,
		Creator:         core.Creator,
		Reward:          core.Reward,
		Deadline:        core.Deadline,
		ReviewEnd:       core.ReviewEnd,
		Status:          domain.Status(core.Status),
		Title:           text.Title,
		Description:     text.Description,
		Winner:          winner.Winner,
		Paid:            winner.Paid,
		SubmissionCount: int(count),
	}, nil
}

// Refresh re-fetches one bounty and updates its cache slot in place. Used
// after a confirmed mutation scoped to that record.
func (r *Repository) Refresh(ctx context.Context, id uint64) error {
	b, err := r.FetchOne(ctx, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bounties {
		if r.bounties[i].ID == id {
			r.bounties[i] = b
			return nil
		}
	}
	r.bounties = append(r.bounties, b)
	return nil
}

// FetchSubmissions reads the submissions of one bounty sequentially in index
// order, which is creation order, and decodes the composite evidence wire
// format. Any failure fails the whole read; no partial list is returned.
func (r *Repository) FetchSubmissions(ctx context.Context, id uint64) ([]domain.Submission, error) {
	start := time.Now()

	count, err := r.ledger.Counts(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("read submission count: %w", err)
	}

	subs := make([]domain.Submission, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := r.ledger.SubmissionCore(ctx, id, i)
		if err != nil {
			return nil, fmt.Errorf("read submission %d/%d: %w", id, i, err)
		}
		evidence, note := domain.DecodeEvidence(raw.Evidence)
		subs = append(subs, domain.Submission{
			Submitter: raw.Submitter,
			Evidence:  evidence,
			Note:      note,
			CreatedAt: raw.CreatedAt,
		})
	}

	if r.metrics != nil {
		r.metrics.FetchDuration.WithLabelValues("fetch_submissions").Observe(time.Since(start).Seconds())
	}

	return subs, nil
}

// HasSubmitted asks the ledger whether addr already submitted to bounty id.
// Advisory only: the ledger enforces regardless.
func (r *Repository) HasSubmitted(ctx context.Context, id uint64, addr common.Address) (bool, error) {
	return r.ledger.HasSubmitted(ctx, id, addr)
}

// SubmittedBounties returns the cached bounties addr has submitted to, by a
// membership scan against the ledger. This is the per-user submission index
// the contract exposes; there is no cheaper query.
func (r *Repository) SubmittedBounties(ctx context.Context, addr common.Address) ([]domain.Bounty, error) {
	cached := r.Bounties()

	var out []domain.Bounty
	for _, b := range cached {
		ok, err := r.ledger.HasSubmitted(ctx, b.ID, addr)
		if err != nil {
			return nil, fmt.Errorf("membership check for bounty %d: %w", b.ID, err)
		}
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Bounties returns a copy of the cached set. Record identity is not stable
// across refreshes; callers must re-resolve by ID.
func (r *Repository) Bounties() []domain.Bounty {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneAll(r.bounties)
}

// Bounty returns a copy of one cached record by id.
func (r *Repository) Bounty(id uint64) (domain.Bounty, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.bounties {
		if r.bounties[i].ID == id {
			return r.bounties[i].Clone(), true
		}
	}
	return domain.Bounty{}, false
}

func cloneAll(in []domain.Bounty) []domain.Bounty {
	out := make([]domain.Bounty, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}
