package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/claims/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.QuerierFrom(ctx, r.pool)
}

const submissionCols = `id, claim_id, source_format, status, score, compliance_status,
	claim, verdict, error_kind, error_detail, batch_id, created_at`

func (r *repoPG) scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	var claimJSON, verdictJSON []byte
	err := row.Scan(&s.ID, &s.ClaimID, &s.SourceFormat, &s.Status, &s.Score, &s.ComplianceStatus,
		&claimJSON, &verdictJSON, &s.ErrorKind, &s.ErrorDetail, &s.BatchID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(claimJSON) > 0 {
		if err := json.Unmarshal(claimJSON, &s.Claim); err != nil {
			return nil, fmt.Errorf("decode stored claim %s: %w", s.ID, err)
		}
	}
	if len(verdictJSON) > 0 {
		if err := json.Unmarshal(verdictJSON, &s.Verdict); err != nil {
			return nil, fmt.Errorf("decode stored verdict %s: %w", s.ID, err)
		}
	}
	return &s, nil
}

// jsonb marshals v for a JSONB column, mapping nil pointers to SQL NULL.
func jsonb[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func (r *repoPG) Create(ctx context.Context, s *Submission) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	claimJSON, err := jsonb(s.Claim)
	if err != nil {
		return fmt.Errorf("encode claim: %w", err)
	}
	verdictJSON, err := jsonb(s.Verdict)
	if err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	_, err = r.conn(ctx).Exec(ctx, `
		INSERT INTO claim_submission (id, claim_id, source_format, status, score, compliance_status,
			claim, verdict, error_kind, error_detail, batch_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		s.ID, s.ClaimID, s.SourceFormat, s.Status, s.Score, s.ComplianceStatus,
		claimJSON, verdictJSON, s.ErrorKind, s.ErrorDetail, s.BatchID, s.CreatedAt)
	return err
}

func (r *repoPG) CreateBatch(ctx context.Context, subs []*Submission) error {
	if db.TxFromContext(ctx) != nil {
		return r.createAll(ctx, subs)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.createAll(db.WithTx(ctx, tx), subs); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) createAll(ctx context.Context, subs []*Submission) error {
	for _, s := range subs {
		if err := r.Create(ctx, s); err != nil {
			return fmt.Errorf("store submission %s: %w", s.ID, err)
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Submission, error) {
	return r.scanSubmission(r.conn(ctx).QueryRow(ctx, `SELECT `+submissionCols+` FROM claim_submission WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Submission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM claim_submission`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+submissionCols+` FROM claim_submission ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Submission
	for rows.Next() {
		s, err := r.scanSubmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
