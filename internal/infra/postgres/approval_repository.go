package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ApprovalRepository implements approval.Repository using PostgreSQL.
type ApprovalRepository struct {
	db *DB
}

// NewApprovalRepository creates a new ApprovalRepository.
func NewApprovalRepository(db *DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

const approvalColumns = `id, finding_id, requested_status, triage_note, requested_by, requested_at,
		expires_at, status, reviewed_by, reviewed_at, review_note`

// Create persists a new approval request. The partial unique index on
// pending requests turns a concurrent duplicate into ErrAlreadyExists.
func (r *ApprovalRepository) Create(ctx context.Context, req *approval.Request) error {
	query := `
		INSERT INTO status_approval_requests (id, finding_id, requested_status, triage_note, requested_by, requested_at, expires_at, status, reviewed_by, reviewed_at, review_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		req.ID().String(),
		req.FindingID().String(),
		string(req.RequestedStatus()),
		req.TriageNote(),
		req.RequestedBy(),
		req.RequestedAt(),
		nullTime(req.ExpiresAt()),
		string(req.Status()),
		req.ReviewedBy(),
		nullTime(req.ReviewedAt()),
		req.ReviewNote(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create approval request: %w", err)
	}
	return nil
}

// GetByID retrieves an approval request by ID.
func (r *ApprovalRepository) GetByID(ctx context.Context, id shared.ID) (*approval.Request, error) {
	query := `SELECT ` + approvalColumns + ` FROM status_approval_requests WHERE id = $1`
	return r.scanRequest(r.db.QueryRowContext(ctx, query, id.String()))
}

// Update persists request changes.
func (r *ApprovalRepository) Update(ctx context.Context, req *approval.Request) error {
	result, err := r.db.ExecContext(ctx, updateApprovalQuery, updateApprovalArgs(req)...)
	if err != nil {
		return fmt.Errorf("failed to update approval request: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return approval.ErrNotFound
	}
	return nil
}

const updateApprovalQuery = `
	UPDATE status_approval_requests
	SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5
	WHERE id = $1
`

func updateApprovalArgs(req *approval.Request) []any {
	return []any{
		req.ID().String(),
		string(req.Status()),
		req.ReviewedBy(),
		nullTime(req.ReviewedAt()),
		req.ReviewNote(),
	}
}

// ListPending returns unresolved requests, oldest first.
func (r *ApprovalRepository) ListPending(ctx context.Context) ([]*approval.Request, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM status_approval_requests
		WHERE status = $1
		ORDER BY requested_at
	`
	return r.listRequests(ctx, query, string(approval.StatusPending))
}

// ListByFinding returns the finding's requests, newest first.
func (r *ApprovalRepository) ListByFinding(ctx context.Context, findingID shared.ID) ([]*approval.Request, error) {
	query := `
		SELECT ` + approvalColumns + `
		FROM status_approval_requests
		WHERE finding_id = $1
		ORDER BY requested_at DESC
	`
	return r.listRequests(ctx, query, findingID.String())
}

// HasPending reports whether the finding already has an unresolved request.
func (r *ApprovalRepository) HasPending(ctx context.Context, findingID shared.ID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM status_approval_requests WHERE finding_id = $1 AND status = $2)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, findingID.String(), string(approval.StatusPending)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending approval: %w", err)
	}
	return exists, nil
}

// Resolve persists the resolved request and the finding it mutates in one
// transaction. The finding is nil for rejections.
func (r *ApprovalRepository) Resolve(ctx context.Context, req *approval.Request, f *finding.Finding) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, updateApprovalQuery, updateApprovalArgs(req)...)
		if err != nil {
			return fmt.Errorf("failed to update approval request: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return approval.ErrNotFound
		}

		if f != nil {
			if err := updateFinding(ctx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ApprovalRepository) listRequests(ctx context.Context, query string, args ...any) ([]*approval.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	defer rows.Close()

	var out []*approval.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *ApprovalRepository) scanRequest(row rowScanner) (*approval.Request, error) {
	var (
		idStr, findingIDStr, requestedStatus string
		triageNote, requestedBy              string
		requestedAt                          time.Time
		expiresAt                            sql.NullTime
		status, reviewedBy, reviewNote       string
		reviewedAt                           sql.NullTime
	)

	err := row.Scan(&idStr, &findingIDStr, &requestedStatus, &triageNote, &requestedBy,
		&requestedAt, &expiresAt, &status, &reviewedBy, &reviewedAt, &reviewNote)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, approval.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan approval request: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	findingID, err := shared.IDFromString(findingIDStr)
	if err != nil {
		return nil, err
	}

	return approval.Reconstitute(
		id, findingID,
		finding.Status(requestedStatus),
		triageNote, requestedBy, requestedAt,
		nullTimeValue(expiresAt),
		approval.Status(status),
		reviewedBy,
		nullTimeValue(reviewedAt),
		reviewNote,
	), nil
}
