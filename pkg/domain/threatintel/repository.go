package threatintel

import "context"

// EPSSRepository persists EPSS scores.
type EPSSRepository interface {
	UpsertBatch(ctx context.Context, scores []*EPSSScore) error
	GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*EPSSScore, error)
	Count(ctx context.Context) (int64, error)
}

// KEVRepository persists KEV catalog entries.
type KEVRepository interface {
	UpsertBatch(ctx context.Context, entries []*KEVEntry) error
	GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*KEVEntry, error)
	Count(ctx context.Context) (int64, error)
}

// SyncStatusRepository persists per-source sync bookkeeping.
type SyncStatusRepository interface {
	GetBySource(ctx context.Context, source string) (*SyncStatus, error)
	GetAll(ctx context.Context) ([]*SyncStatus, error)
	Upsert(ctx context.Context, status *SyncStatus) error
}
