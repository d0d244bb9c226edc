// Package app is the explicit application state: one wallet session, one
// notification queue, and the repository and orchestrator scoped to the
// current connection. Components below this package never reach for global
// state; app hands them what they need.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/chain"
	"bounty-board/internal/domain"
	"bounty-board/internal/history"
	"bounty-board/internal/notify"
	"bounty-board/internal/observability"
	"bounty-board/internal/orchestrator"
	"bounty-board/internal/permissions"
	"bounty-board/internal/repository"
	"bounty-board/internal/wallet"
)

// ErrNotConnected is returned by operations that require an active wallet
// session.
var ErrNotConnected = errors.New("no wallet connected")

// App holds the process-wide client state.
type App struct {
	session *wallet.Session
	queue   *notify.Queue
	store   history.Store
	logger  *log.Logger
	metrics *observability.Metrics

	concurrency int

	mu   sync.Mutex
	repo *repository.Repository
	orch *orchestrator.Orchestrator
}

// Options for creating an App.
type Options struct {
	// Provider may be nil; connecting then fails with a notification, the
	// same as a browser without a wallet.
	Provider   wallet.Provider
	Descriptor chain.Descriptor
	Contract   common.Address
	// History is optional; activities are not recorded without it.
	History history.Store
	// Queue defaults to a fresh queue.
	Queue            *notify.Queue
	Logger           *log.Logger
	Metrics          *observability.Metrics
	FetchConcurrency int
}

// New assembles a disconnected App.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	queue := opts.Queue
	if queue == nil {
		var qopts []notify.Option
		if opts.Metrics != nil {
			qopts = append(qopts, notify.WithGauge(opts.Metrics.ActiveNotifications))
		}
		queue = notify.NewQueue(qopts...)
	}

	return &App{
		session: wallet.NewSession(wallet.SessionOptions{
			Provider:   opts.Provider,
			Descriptor: opts.Descriptor,
			Contract:   opts.Contract,
			Queue:      queue,
			Logger:     logger,
			Metrics:    opts.Metrics,
		}),
		queue:       queue,
		store:       opts.History,
		logger:      logger,
		metrics:     opts.Metrics,
		concurrency: opts.FetchConcurrency,
	}
}

// Connect establishes the wallet session and builds the repository and
// orchestrator scoped to it.
func (a *App) Connect(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return err
	}

	gateway := a.session.Gateway()
	addr, _ := a.session.Address()
	if gateway == nil {
		// A concurrent Connect is still in flight; it will finish the wiring.
		return nil
	}

	a.mu.Lock()
	a.repo = repository.New(repository.Options{
		Ledger:      gateway,
		Concurrency: a.concurrency,
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	a.orch = orchestrator.New(orchestrator.Options{
		Contract: gateway,
		Repo:     a.repo,
		Queue:    a.queue,
		Store:    a.store,
		Actor:    addr,
		Logger:   a.logger,
		Metrics:  a.metrics,
	})
	a.mu.Unlock()
	return nil
}

// Disconnect drops the session and everything scoped to it.
func (a *App) Disconnect() {
	a.mu.Lock()
	a.repo = nil
	a.orch = nil
	a.mu.Unlock()
	a.session.Disconnect()
}

// Session returns the wallet session.
func (a *App) Session() *wallet.Session {
	return a.session
}

// Queue returns the notification queue.
func (a *App) Queue() *notify.Queue {
	return a.queue
}

// History returns the activity store, or nil.
func (a *App) History() history.Store {
	return a.store
}

// Repository returns the connection-scoped repository. Without a session it
// pushes an error notification and fails, so callers surface the same
// "connect first" experience everywhere.
func (a *App) Repository() (*repository.Repository, error) {
	a.mu.Lock()
	repo := a.repo
	a.mu.Unlock()
	if repo == nil {
		a.queue.Push(notify.KindError, "Connect a wallet first")
		return nil, ErrNotConnected
	}
	return repo, nil
}

// Orchestrator returns the connection-scoped orchestrator, enforcing the
// same session precondition as Repository.
func (a *App) Orchestrator() (*orchestrator.Orchestrator, error) {
	a.mu.Lock()
	orch := a.orch
	a.mu.Unlock()
	if orch == nil {
		a.queue.Push(notify.KindError, "Connect a wallet first")
		return nil, ErrNotConnected
	}
	return orch, nil
}

// Permissions evaluates what the connected account may do to one bounty,
// using fresh submission state.
func (a *App) Permissions(ctx context.Context, bountyID uint64) (permissions.Permissions, error) {
	repo, err := a.Repository()
	if err != nil {
		return permissions.Permissions{}, err
	}

	bounty, ok := repo.Bounty(bountyID)
	if !ok {
		if err := repo.Refresh(ctx, bountyID); err != nil {
			return permissions.Permissions{}, err
		}
		bounty, _ = repo.Bounty(bountyID)
	}

	subs, err := repo.FetchSubmissions(ctx, bountyID)
	if err != nil {
		return permissions.Permissions{}, err
	}

	addr, connected := a.session.Address()
	var submitted bool
	if connected {
		submitted, err = repo.HasSubmitted(ctx, bountyID, addr)
		if err != nil {
			return permissions.Permissions{}, err
		}
	}

	return permissions.Evaluate(addr, connected, bounty, subs, submitted, time.Now().Unix()), nil
}

// Profile is the connected account's view of its own activity.
type Profile struct {
	Address    common.Address
	Balance    string
	Reputation uint64
	Created    []domain.Bounty
	Submitted  []domain.Bounty
	Won        []domain.Bounty
}

// Profile assembles the connected account's bounty relationships from the
// cached set plus a membership scan for submissions.
func (a *App) Profile(ctx context.Context) (Profile, error) {
	repo, err := a.Repository()
	if err != nil {
		return Profile{}, err
	}
	addr, ok := a.session.Address()
	if !ok {
		return Profile{}, ErrNotConnected
	}

	if _, err := repo.FetchAll(ctx); err != nil {
		return Profile{}, err
	}

	p := Profile{
		Address:    addr,
		Reputation: a.session.Reputation(),
	}
	if bal := a.session.Balance(); bal != nil {
		p.Balance = domain.FormatReward(bal)
	}

	for _, b := range repo.Bounties() {
		if b.Creator == addr {
			p.Created = append(p.Created, b)
		}
		if b.Winner == addr {
			p.Won = append(p.Won, b)
		}
	}

	submitted, err := repo.SubmittedBounties(ctx, addr)
	if err != nil {
		return Profile{}, err
	}
	p.Submitted = submitted

	return p, nil
}
