package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/pagination"
)

// FindingRepository implements finding.Repository using PostgreSQL.
// Reconciliation and enrichment methods are batch-shaped: one scan or one
// enrichment pass issues a constant number of statements.
type FindingRepository struct {
	db *DB
}

// NewFindingRepository creates a new FindingRepository.
func NewFindingRepository(db *DB) *FindingRepository {
	return &FindingRepository{db: db}
}

const findingColumns = `id, artifact_id, release_id, scan_id, title, description, severity, finding_type,
		vulnerability_id, package_name, package_version, fix_version, file_path, line, metadata,
		status, triage_note, triaged_by, triaged_at, risk_accepted_until, first_seen, last_seen, hash_id`

// severityRankSQL orders rows CRITICAL first. Kept in SQL so ordering and
// pagination happen in one query.
const severityRankSQL = `
	CASE severity
		WHEN 'CRITICAL' THEN 0
		WHEN 'HIGH' THEN 1
		WHEN 'MEDIUM' THEN 2
		WHEN 'LOW' THEN 3
		ELSE 4
	END`

// GetByID retrieves a finding by ID.
func (r *FindingRepository) GetByID(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	query := `SELECT ` + findingColumns + ` FROM findings WHERE id = $1`
	return r.scanFinding(r.db.QueryRowContext(ctx, query, id.String()))
}

// Update persists finding changes.
func (r *FindingRepository) Update(ctx context.Context, f *finding.Finding) error {
	return updateFinding(ctx, r.db, f)
}

func updateFinding(ctx context.Context, exec execer, f *finding.Finding) error {
	metadata, err := toJSONB(f.Metadata())
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		UPDATE findings
		SET severity = $2, fix_version = $3, metadata = $4, status = $5,
			triage_note = $6, triaged_by = $7, triaged_at = $8,
			risk_accepted_until = $9, last_seen = $10
		WHERE id = $1
	`

	result, err := exec.ExecContext(ctx, query,
		f.ID().String(),
		string(f.Severity()),
		f.FixVersion(),
		metadata,
		string(f.Status()),
		f.TriageNote(),
		f.TriagedBy(),
		nullTime(f.TriagedAt()),
		nullTime(f.RiskAcceptedUntil()),
		f.LastSeen(),
	)
	if err != nil {
		return fmt.Errorf("failed to update finding: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return finding.ErrNotFound
	}
	return nil
}

// List returns findings matching the filter, paginated. Ordering defaults
// to severity rank then recency unless the filter carries a sort.
func (r *FindingRepository) List(ctx context.Context, filter finding.Filter, p pagination.Pagination) ([]*finding.Finding, int64, error) {
	where, args := buildFindingFilter(filter)

	countQuery := `SELECT COUNT(*) FROM findings` + where
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count findings: %w", err)
	}

	orderBy := severityRankSQL + ", last_seen DESC"
	if filter.Sort != nil {
		orderBy = filter.Sort.SQLWithDefault(orderBy)
	}
	query := fmt.Sprintf(`SELECT %s FROM findings%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		findingColumns, where, orderBy, len(args)+1, len(args)+2)
	args = append(args, p.Limit(), p.Offset())

	findings, err := r.listFindings(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return findings, total, nil
}

func buildFindingFilter(filter finding.Filter) (string, []any) {
	var conds []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Scope != nil {
		if filter.Scope.ArtifactID != nil {
			conds = append(conds, "artifact_id = "+arg(filter.Scope.ArtifactID.String()))
		} else if filter.Scope.ReleaseID != nil {
			conds = append(conds, "release_id = "+arg(filter.Scope.ReleaseID.String()))
		}
	}
	if len(filter.Statuses) > 0 {
		vals := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			vals[i] = string(s)
		}
		conds = append(conds, "status = ANY("+arg(pq.Array(vals))+")")
	}
	if len(filter.Severity) > 0 {
		vals := make([]string, len(filter.Severity))
		for i, s := range filter.Severity {
			vals[i] = string(s)
		}
		conds = append(conds, "severity = ANY("+arg(pq.Array(vals))+")")
	}
	if len(filter.Types) > 0 {
		vals := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			vals[i] = string(t)
		}
		conds = append(conds, "finding_type = ANY("+arg(pq.Array(vals))+")")
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, "(title ILIKE "+p+" OR package_name ILIKE "+p+" OR vulnerability_id ILIKE "+p+")")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// HashIndex returns hash -> state for every finding in the scope.
func (r *FindingRepository) HashIndex(ctx context.Context, scope finding.Scope) (map[string]finding.HashState, error) {
	where, scopeArg := scopeCondition(scope)
	query := `SELECT hash_id, id, status FROM findings WHERE ` + where

	rows, err := r.db.QueryContext(ctx, query, scopeArg)
	if err != nil {
		return nil, fmt.Errorf("failed to load hash index: %w", err)
	}
	defer rows.Close()

	out := make(map[string]finding.HashState)
	for rows.Next() {
		var hashID, idStr, status string
		if err := rows.Scan(&hashID, &idStr, &status); err != nil {
			return nil, fmt.Errorf("failed to scan hash index row: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, err
		}
		out[hashID] = finding.HashState{ID: id, Status: finding.Status(status)}
	}
	return out, rows.Err()
}

func scopeCondition(scope finding.Scope) (string, any) {
	if scope.ArtifactID != nil {
		return "artifact_id = $1", scope.ArtifactID.String()
	}
	return "release_id = $1", scope.ReleaseID.String()
}

// ApplyChangeSet commits a reconciliation outcome atomically: one bulk
// insert plus one update per non-empty lifecycle bucket, all in a single
// transaction.
func (r *FindingRepository) ApplyChangeSet(ctx context.Context, cs finding.ChangeSet) error {
	if cs.Empty() {
		return nil
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if len(cs.Creates) > 0 {
			if err := insertFindings(ctx, tx, cs.Creates); err != nil {
				return err
			}
		}

		scanID := cs.ScanID.String()

		if len(cs.ReopenIDs) > 0 {
			query := `UPDATE findings SET status = $1 WHERE id = ANY($2)`
			if _, err := tx.ExecContext(ctx, query, string(finding.StatusOpen), pq.Array(idStrings(cs.ReopenIDs))); err != nil {
				return fmt.Errorf("failed to reopen findings: %w", err)
			}
		}

		if len(cs.RefreshIDs) > 0 {
			query := `UPDATE findings SET last_seen = $1, scan_id = $2 WHERE id = ANY($3)`
			if _, err := tx.ExecContext(ctx, query, cs.ObservedAt, scanID, pq.Array(idStrings(cs.RefreshIDs))); err != nil {
				return fmt.Errorf("failed to refresh findings: %w", err)
			}
		}

		if len(cs.CloseIDs) > 0 {
			query := `UPDATE findings SET status = $1, last_seen = $2 WHERE id = ANY($3)`
			if _, err := tx.ExecContext(ctx, query, string(finding.StatusFixed), cs.ObservedAt, pq.Array(idStrings(cs.CloseIDs))); err != nil {
				return fmt.Errorf("failed to close findings: %w", err)
			}
		}

		return nil
	})
}

func insertFindings(ctx context.Context, tx *sql.Tx, findings []*finding.Finding) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("findings",
		"id", "artifact_id", "release_id", "scan_id", "title", "description",
		"severity", "finding_type", "vulnerability_id", "package_name",
		"package_version", "fix_version", "file_path", "line", "metadata",
		"status", "triage_note", "triaged_by", "triaged_at",
		"risk_accepted_until", "first_seen", "last_seen", "hash_id",
	))
	if err != nil {
		return fmt.Errorf("failed to prepare finding insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range findings {
		metadata, err := toJSONB(f.Metadata())
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}

		scope := f.Scope()
		_, err = stmt.ExecContext(ctx,
			f.ID().String(),
			nullID(scope.ArtifactID),
			nullID(scope.ReleaseID),
			f.ScanID().String(),
			f.Title(),
			f.Description(),
			string(f.Severity()),
			string(f.FindingType()),
			f.VulnerabilityID(),
			f.PackageName(),
			f.PackageVersion(),
			f.FixVersion(),
			f.FilePath(),
			f.Line(),
			string(metadata),
			string(f.Status()),
			f.TriageNote(),
			f.TriagedBy(),
			nullTime(f.TriagedAt()),
			nullTime(f.RiskAcceptedUntil()),
			f.FirstSeen(),
			f.LastSeen(),
			f.HashID(),
		)
		if err != nil {
			return fmt.Errorf("failed to buffer finding insert: %w", err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush finding inserts: %w", err)
	}
	return nil
}

// CountOpen returns the number of OPEN findings in the scope.
func (r *FindingRepository) CountOpen(ctx context.Context, scope finding.Scope) (int, error) {
	where, scopeArg := scopeCondition(scope)
	query := `SELECT COUNT(*) FROM findings WHERE ` + where + ` AND status = $2`

	var count int
	err := r.db.QueryRowContext(ctx, query, scopeArg, string(finding.StatusOpen)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open findings: %w", err)
	}
	return count, nil
}

// RiskCountsByScope aggregates OPEN findings per scope in one grouped
// query. KEV membership lives in metadata; secrets are typed.
func (r *FindingRepository) RiskCountsByScope(ctx context.Context, scopes []finding.Scope) (map[shared.ID]finding.RiskCounts, error) {
	out := make(map[shared.ID]finding.RiskCounts, len(scopes))
	if len(scopes) == 0 {
		return out, nil
	}

	artifactIDs, releaseIDs := splitScopes(scopes)

	query := `
		SELECT COALESCE(artifact_id::text, release_id::text) AS scope_id,
			COUNT(*) FILTER (WHERE severity = 'CRITICAL'),
			COUNT(*) FILTER (WHERE severity = 'HIGH'),
			COUNT(*) FILTER (WHERE severity = 'MEDIUM'),
			COUNT(*) FILTER (WHERE severity = 'LOW'),
			COUNT(*) FILTER (WHERE severity = 'INFO'),
			COUNT(*) FILTER (WHERE metadata->>'kev_status' = 'true'),
			COUNT(*) FILTER (WHERE finding_type = 'SECRET')
		FROM findings
		WHERE status = 'OPEN' AND (artifact_id = ANY($1) OR release_id = ANY($2))
		GROUP BY scope_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(artifactIDs), pq.Array(releaseIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate risk counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr string
		var c finding.RiskCounts
		if err := rows.Scan(&idStr, &c.Critical, &c.High, &c.Medium, &c.Low, &c.Info, &c.KEV, &c.Secrets); err != nil {
			return nil, fmt.Errorf("failed to scan risk counts: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, err
		}
		out[id] = c
	}
	return out, rows.Err()
}

func splitScopes(scopes []finding.Scope) ([]string, []string) {
	var artifactIDs, releaseIDs []string
	for _, s := range scopes {
		if s.ArtifactID != nil {
			artifactIDs = append(artifactIDs, s.ArtifactID.String())
		} else if s.ReleaseID != nil {
			releaseIDs = append(releaseIDs, s.ReleaseID.String())
		}
	}
	return artifactIDs, releaseIDs
}

// ListBlocking returns OPEN findings that are known-exploited or secrets,
// ordered severity then recency.
func (r *FindingRepository) ListBlocking(ctx context.Context, scopes []finding.Scope) ([]*finding.Finding, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	artifactIDs, releaseIDs := splitScopes(scopes)

	query := `
		SELECT ` + findingColumns + `
		FROM findings
		WHERE status = 'OPEN'
			AND (artifact_id = ANY($1) OR release_id = ANY($2))
			AND (metadata->>'kev_status' = 'true' OR finding_type = 'SECRET')
		ORDER BY ` + severityRankSQL + `, last_seen DESC
	`

	return r.listFindings(ctx, query, pq.Array(artifactIDs), pq.Array(releaseIDs))
}

// ListSLABreaches returns OPEN CRITICAL findings first seen before the
// cutoff, oldest first.
func (r *FindingRepository) ListSLABreaches(ctx context.Context, scopes []finding.Scope, cutoff time.Time) ([]*finding.Finding, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	artifactIDs, releaseIDs := splitScopes(scopes)

	query := `
		SELECT ` + findingColumns + `
		FROM findings
		WHERE status = 'OPEN' AND severity = 'CRITICAL'
			AND (artifact_id = ANY($1) OR release_id = ANY($2))
			AND first_seen < $3
		ORDER BY first_seen
	`

	return r.listFindings(ctx, query, pq.Array(artifactIDs), pq.Array(releaseIDs), cutoff)
}

// ToxicPackages aggregates packages with open known-exploited findings in
// one grouped query, most KEV findings first.
func (r *FindingRepository) ToxicPackages(ctx context.Context, scopes []finding.Scope) ([]finding.ToxicPackage, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	artifactIDs, releaseIDs := splitScopes(scopes)

	query := `
		SELECT package_name, package_version, COUNT(*), MAX(fix_version)
		FROM findings
		WHERE status = 'OPEN'
			AND metadata->>'kev_status' = 'true'
			AND package_name != ''
			AND (artifact_id = ANY($1) OR release_id = ANY($2))
		GROUP BY package_name, package_version
		ORDER BY COUNT(*) DESC, package_name
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(artifactIDs), pq.Array(releaseIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate toxic packages: %w", err)
	}
	defer rows.Close()

	var out []finding.ToxicPackage
	for rows.Next() {
		var p finding.ToxicPackage
		if err := rows.Scan(&p.Name, &p.Version, &p.KEVCount, &p.FixVersion); err != nil {
			return nil, fmt.Errorf("failed to scan toxic package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListEnrichable pages through SCA findings carrying a vulnerability ID.
// Ordered by ID so pages are stable across a pass.
func (r *FindingRepository) ListEnrichable(ctx context.Context, offset, limit int) ([]*finding.Finding, error) {
	query := `
		SELECT ` + findingColumns + `
		FROM findings
		WHERE finding_type = 'SCA' AND vulnerability_id != ''
		ORDER BY id
		LIMIT $1 OFFSET $2
	`

	return r.listFindings(ctx, query, limit, offset)
}

// UpdateMetadataBatch persists enrichment metadata changes, one statement
// per batch.
func (r *FindingRepository) UpdateMetadataBatch(ctx context.Context, findings []*finding.Finding) error {
	if len(findings) == 0 {
		return nil
	}

	ids := make([]string, len(findings))
	payloads := make([]string, len(findings))
	for i, f := range findings {
		metadata, err := toJSONB(f.Metadata())
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		ids[i] = f.ID().String()
		payloads[i] = string(metadata)
	}

	query := `
		UPDATE findings AS f
		SET metadata = u.metadata::jsonb
		FROM UNNEST($1::uuid[], $2::text[]) AS u(id, metadata)
		WHERE f.id = u.id
	`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(payloads)); err != nil {
		return fmt.Errorf("failed to update finding metadata: %w", err)
	}
	return nil
}

// ExpireRiskAcceptances reverts WONT_FIX findings whose acceptance deadline
// passed back to OPEN in one statement, stamping the triage note.
func (r *FindingRepository) ExpireRiskAcceptances(ctx context.Context, now time.Time) (int, error) {
	note := fmt.Sprintf("\n\n[Automatically expired on %s]", now.Format("2006-01-02 15:04"))

	query := `
		UPDATE findings
		SET status = $1, risk_accepted_until = NULL, triage_note = triage_note || $2
		WHERE status = $3 AND risk_accepted_until < $4
	`

	result, err := r.db.ExecContext(ctx, query,
		string(finding.StatusOpen), note, string(finding.StatusWontFix), now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire risk acceptances: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired risk acceptances: %w", err)
	}
	return int(n), nil
}

func (r *FindingRepository) listFindings(ctx context.Context, query string, args ...any) ([]*finding.Finding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings: %w", err)
	}
	defer rows.Close()

	var out []*finding.Finding
	for rows.Next() {
		f, err := r.scanFinding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FindingRepository) scanFinding(row rowScanner) (*finding.Finding, error) {
	var (
		idStr, scanIDStr, title, description string
		artifactID, releaseID                sql.NullString
		severity, findingType                string
		vulnerabilityID, packageName         string
		packageVersion, fixVersion, filePath string
		line                                 int
		metadataRaw                          []byte
		status, triageNote, triagedBy        string
		triagedAt, riskAcceptedUntil         sql.NullTime
		firstSeen, lastSeen                  time.Time
		hashID                               string
	)

	err := row.Scan(&idStr, &artifactID, &releaseID, &scanIDStr, &title, &description,
		&severity, &findingType, &vulnerabilityID, &packageName, &packageVersion,
		&fixVersion, &filePath, &line, &metadataRaw, &status, &triageNote,
		&triagedBy, &triagedAt, &riskAcceptedUntil, &firstSeen, &lastSeen, &hashID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, finding.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan finding: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	scanID, err := shared.IDFromString(scanIDStr)
	if err != nil {
		return nil, err
	}

	metadata := finding.Metadata{}
	if err := fromJSONB(metadataRaw, &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	scope := finding.Scope{
		ArtifactID: parseNullID(artifactID),
		ReleaseID:  parseNullID(releaseID),
	}

	return finding.Reconstitute(
		id, scope, scanID, title, description,
		finding.Severity(severity),
		finding.Type(findingType),
		vulnerabilityID, packageName, packageVersion, fixVersion, filePath,
		line, metadata,
		finding.Status(status),
		triageNote, triagedBy,
		nullTimeValue(triagedAt),
		nullTimeValue(riskAcceptedUntil),
		firstSeen, lastSeen, hashID,
	), nil
}
