package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"bounty-board/internal/history"
)

// Store implements history.Store using PostgreSQL. Addresses and hashes are
// stored as lowercase hex text.
type Store struct {
	pool *Pool
}

// NewStore creates a new Store.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

// Record adds a new pending activity. Returns ErrDuplicateKey if the id
// exists.
func (s *Store) Record(ctx context.Context, a *history.Activity) error {
	if a == nil || a.ID == "" {
		return history.ErrInvalidInput
	}

	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO activities (
			id, action, bounty_id, actor, tx_hash, outcome, detail, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		a.ID,
		string(a.Action),
		int64(a.BountyID),
		hexAddr(a.Actor),
		strings.ToLower(a.TxHash.Hex()),
		string(a.Outcome),
		a.Detail,
		createdAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return history.ErrDuplicateKey
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// MarkConfirmed finalizes an activity as confirmed and binds a nonzero
// bounty id.
func (s *Store) MarkConfirmed(ctx context.Context, id string, bountyID uint64) error {
	query := `
		UPDATE activities
		SET outcome = $2,
		    bounty_id = CASE WHEN $3 <> 0 THEN $3 ELSE bounty_id END,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(history.OutcomeConfirmed), int64(bountyID))
	if err != nil {
		return fmt.Errorf("mark confirmed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return history.ErrNotFound
	}
	return nil
}

// MarkFailed finalizes an activity as failed with a reason.
func (s *Store) MarkFailed(ctx context.Context, id, reason string) error {
	query := `
		UPDATE activities
		SET outcome = $2, detail = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := s.pool.Exec(ctx, query, id, string(history.OutcomeFailed), reason)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return history.ErrNotFound
	}
	return nil
}

// ByActor retrieves all activities of one account, ordered by created_at ASC.
func (s *Store) ByActor(ctx context.Context, actor common.Address) ([]*history.Activity, error) {
	query := `
		SELECT id, action, bounty_id, actor, tx_hash, outcome, detail, created_at, updated_at
		FROM activities
		WHERE actor = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, hexAddr(actor))
	if err != nil {
		return nil, fmt.Errorf("get activities by actor: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ByBounty retrieves all activities touching one bounty, ordered by
// created_at ASC.
func (s *Store) ByBounty(ctx context.Context, bountyID uint64) ([]*history.Activity, error) {
	query := `
		SELECT id, action, bounty_id, actor, tx_hash, outcome, detail, created_at, updated_at
		FROM activities
		WHERE bounty_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, int64(bountyID))
	if err != nil {
		return nil, fmt.Errorf("get activities by bounty: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

func hexAddr(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func scanActivity(row pgx.Row) (*history.Activity, error) {
	var (
		a        history.Activity
		action   string
		bountyID int64
		actor    string
		txHash   string
		outcome  string
	)
	if err := row.Scan(&a.ID, &action, &bountyID, &actor, &txHash, &outcome, &a.Detail, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Action = history.Action(action)
	a.BountyID = uint64(bountyID)
	a.Actor = common.HexToAddress(actor)
	a.TxHash = common.HexToHash(txHash)
	a.Outcome = history.Outcome(outcome)
	return &a, nil
}

func scanActivities(rows pgx.Rows) ([]*history.Activity, error) {
	var result []*history.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return result, nil
}
