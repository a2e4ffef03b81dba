package app

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wellqio/api/internal/config"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/threatintel"
	"github.com/wellqio/api/pkg/logger"
)

// FeedFetcher retrieves raw feed bytes. Implementations validate URLs
// against SSRF before dialing.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// ThreatIntelService syncs the EPSS and KEV feeds and enriches stored
// findings with their data.
type ThreatIntelService struct {
	epss       threatintel.EPSSRepository
	kev        threatintel.KEVRepository
	syncStatus threatintel.SyncStatusRepository
	findings   finding.Repository
	fetcher    FeedFetcher
	limiter    *rate.Limiter
	cfg        config.ThreatIntelConfig
	logger     *logger.Logger
}

// NewThreatIntelService creates a new ThreatIntelService.
func NewThreatIntelService(
	epss threatintel.EPSSRepository,
	kev threatintel.KEVRepository,
	syncStatus threatintel.SyncStatusRepository,
	findings finding.Repository,
	fetcher FeedFetcher,
	cfg config.ThreatIntelConfig,
	log *logger.Logger,
) *ThreatIntelService {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	return &ThreatIntelService{
		epss:       epss,
		kev:        kev,
		syncStatus: syncStatus,
		findings:   findings,
		fetcher:    fetcher,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		cfg:        cfg,
		logger:     log.With("service", "threat_intel"),
	}
}

// SyncResult is the outcome of syncing one feed.
type SyncResult struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
	Err     error  `json:"-"`
}

// SyncAll syncs both feeds in parallel and then enriches findings with the
// fresh data. Feed failures are independent; one bad feed never blocks the
// other.
func (s *ThreatIntelService) SyncAll(ctx context.Context) []SyncResult {
	results := make([]SyncResult, 2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results[0] = s.SyncEPSS(gctx)
		return nil
	})
	g.Go(func() error {
		results[1] = s.SyncKEV(gctx)
		return nil
	})
	_ = g.Wait()

	if results[0].Err == nil || results[1].Err == nil {
		if err := s.EnrichFindings(ctx); err != nil {
			s.logger.Error("finding enrichment failed", "error", err)
		}
	}
	return results
}

// SyncEPSS refreshes the EPSS score table.
func (s *ThreatIntelService) SyncEPSS(ctx context.Context) SyncResult {
	return s.sync(ctx, threatintel.SourceEPSS, s.cfg.EPSSEnabled, func(ctx context.Context) (int, error) {
		body, err := s.fetch(ctx, s.cfg.EPSSURL)
		if err != nil {
			return 0, err
		}
		defer body.Close()

		scores, err := parseEPSSFeed(body)
		if err != nil {
			return 0, err
		}

		for start := 0; start < len(scores); start += s.cfg.BatchSize {
			end := min(start+s.cfg.BatchSize, len(scores))
			if err := s.epss.UpsertBatch(ctx, scores[start:end]); err != nil {
				return 0, fmt.Errorf("upsert epss batch: %w", err)
			}
		}
		return len(scores), nil
	})
}

// SyncKEV refreshes the KEV catalog table.
func (s *ThreatIntelService) SyncKEV(ctx context.Context) SyncResult {
	return s.sync(ctx, threatintel.SourceKEV, s.cfg.KEVEnabled, func(ctx context.Context) (int, error) {
		body, err := s.fetch(ctx, s.cfg.KEVURL)
		if err != nil {
			return 0, err
		}
		defer body.Close()

		entries, err := parseKEVFeed(body)
		if err != nil {
			return 0, err
		}

		for start := 0; start < len(entries); start += s.cfg.BatchSize {
			end := min(start+s.cfg.BatchSize, len(entries))
			if err := s.kev.UpsertBatch(ctx, entries[start:end]); err != nil {
				return 0, fmt.Errorf("upsert kev batch: %w", err)
			}
		}
		return len(entries), nil
	})
}

// sync wraps one feed refresh with status bookkeeping.
func (s *ThreatIntelService) sync(ctx context.Context, source string, enabled bool, run func(context.Context) (int, error)) SyncResult {
	result := SyncResult{Source: source}

	status, err := s.syncStatus.GetBySource(ctx, source)
	if errors.Is(err, threatintel.ErrNotFound) {
		status = threatintel.NewSyncStatus(source, enabled)
		err = nil
	}
	if err != nil {
		result.Err = fmt.Errorf("get sync status: %w", err)
		return result
	}

	if !enabled || !status.Enabled() {
		result.Err = threatintel.ErrSourceDisabled
		return result
	}

	status.MarkStarted()
	if err := s.syncStatus.Upsert(ctx, status); err != nil {
		s.logger.Error("failed to persist sync status", "source", source, "error", err)
	}

	started := time.Now()
	records, err := run(ctx)
	if err != nil {
		result.Err = err
		status.MarkFailed(err)
		if upErr := s.syncStatus.Upsert(ctx, status); upErr != nil {
			s.logger.Error("failed to persist sync status", "source", source, "error", upErr)
		}
		s.logger.Error("feed sync failed", "source", source, "error", err)
		return result
	}

	result.Records = records
	status.MarkSuccess(int64(records))
	if err := s.syncStatus.Upsert(ctx, status); err != nil {
		s.logger.Error("failed to persist sync status", "source", source, "error", err)
	}

	s.logger.Info("feed sync completed",
		"source", source,
		"records", records,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return result
}

func (s *ThreatIntelService) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	body, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("fetch %s feed: %w", url, err)
	}
	return &cancelReadCloser{ReadCloser: body, cancel: cancel}, nil
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}

// Statuses returns the bookkeeping of all feed sources.
func (s *ThreatIntelService) Statuses(ctx context.Context) ([]*threatintel.SyncStatus, error) {
	return s.syncStatus.GetAll(ctx)
}

// EnrichFindings joins SCA findings carrying a vulnerability ID against the
// feed tables. KEV and EPSS metadata is set on matches and cleared when a
// CVE leaves a feed, so stale exploitation flags never linger. Finding
// identity and lifecycle status are never touched.
func (s *ThreatIntelService) EnrichFindings(ctx context.Context) error {
	pageSize := s.cfg.BatchSize
	var enriched int

	for offset := 0; ; offset += pageSize {
		page, err := s.findings.ListEnrichable(ctx, offset, pageSize)
		if err != nil {
			return fmt.Errorf("list enrichable findings: %w", err)
		}
		if len(page) == 0 {
			break
		}

		cveIDs := make([]string, 0, len(page))
		for _, f := range page {
			cveIDs = append(cveIDs, f.VulnerabilityID())
		}

		epssByID, err := s.epss.GetByCVEIDs(ctx, cveIDs)
		if err != nil {
			return fmt.Errorf("load epss scores: %w", err)
		}
		kevByID, err := s.kev.GetByCVEIDs(ctx, cveIDs)
		if err != nil {
			return fmt.Errorf("load kev entries: %w", err)
		}

		var changed []*finding.Finding
		for _, f := range page {
			if applyEnrichment(f, epssByID[f.VulnerabilityID()], kevByID[f.VulnerabilityID()]) {
				changed = append(changed, f)
			}
		}
		if len(changed) > 0 {
			if err := s.findings.UpdateMetadataBatch(ctx, changed); err != nil {
				return fmt.Errorf("persist enrichment: %w", err)
			}
			enriched += len(changed)
		}

		if len(page) < pageSize {
			break
		}
	}

	s.logger.Info("finding enrichment completed", "updated", enriched)
	return nil
}

// applyEnrichment reconciles one finding's metadata with the feeds and
// reports whether anything changed.
func applyEnrichment(f *finding.Finding, epss *threatintel.EPSSScore, kev *threatintel.KEVEntry) bool {
	meta := f.Metadata().Clone()
	changed := false

	if kev != nil {
		date := kev.DateAdded().Format("2006-01-02")
		if !meta.KEV() || meta.KEVDate() != date {
			meta.SetKEV(date)
			changed = true
		}
	} else if meta.KEV() {
		meta.ClearKEV()
		changed = true
	}

	if epss != nil {
		if meta.EPSSScore() != epss.Score() || meta.EPSSPercentile() != epss.Percentile() {
			meta.SetEPSS(epss.Score(), epss.Percentile())
			changed = true
		}
	} else if meta.EPSSScore() != 0 || meta.EPSSPercentile() != 0 {
		meta.ClearEPSS()
		changed = true
	}

	if changed {
		f.SetMetadata(meta)
	}
	return changed
}

// parseEPSSFeed decodes the gzipped EPSS CSV. The first line is a comment
// carrying model metadata, the second the column header.
func parseEPSSFeed(r io.Reader) ([]*threatintel.EPSSScore, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	csvReader := csv.NewReader(gz)
	csvReader.FieldsPerRecord = -1

	first, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("read epss metadata line: %w", err)
	}

	var modelVersion string
	var scoreDate time.Time
	if len(first) > 0 && strings.HasPrefix(first[0], "#") {
		for _, field := range first {
			part := strings.TrimPrefix(strings.TrimSpace(field), "#")
			if kv := strings.SplitN(part, ":", 2); len(kv) == 2 {
				switch kv[0] {
				case "model_version":
					modelVersion = kv[1]
				case "score_date":
					scoreDate, _ = time.Parse("2006-01-02", kv[1][:min(len(kv[1]), 10)])
				}
			}
		}
		// Column header follows the comment line.
		if _, err := csvReader.Read(); err != nil {
			return nil, fmt.Errorf("read epss header: %w", err)
		}
	}
	if scoreDate.IsZero() {
		scoreDate = time.Now().UTC()
	}

	var scores []*threatintel.EPSSScore
	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read epss record: %w", err)
		}
		if len(record) < 3 || !strings.HasPrefix(record[0], "CVE-") {
			continue
		}

		score, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		percentile, err := strconv.ParseFloat(record[2], 64)
		if err != nil {
			percentile = 0
		}

		scores = append(scores, threatintel.NewEPSSScore(record[0], score, percentile, modelVersion, scoreDate))
	}
	return scores, nil
}

// kevCatalog is the CISA KEV JSON document.
type kevCatalog struct {
	CatalogVersion  string `json:"catalogVersion"`
	Count           int    `json:"count"`
	Vulnerabilities []struct {
		CVEID                      string `json:"cveID"`
		VendorProject              string `json:"vendorProject"`
		Product                    string `json:"product"`
		VulnerabilityName          string `json:"vulnerabilityName"`
		DateAdded                  string `json:"dateAdded"`
		DueDate                    string `json:"dueDate"`
		KnownRansomwareCampaignUse string `json:"knownRansomwareCampaignUse"`
		Notes                      string `json:"notes"`
	} `json:"vulnerabilities"`
}

// parseKEVFeed decodes the CISA KEV catalog JSON.
func parseKEVFeed(r io.Reader) ([]*threatintel.KEVEntry, error) {
	var catalog kevCatalog
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("parse kev catalog: %w", err)
	}

	entries := make([]*threatintel.KEVEntry, 0, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		if !strings.HasPrefix(v.CVEID, "CVE-") {
			continue
		}
		dateAdded, _ := time.Parse("2006-01-02", v.DateAdded)
		dueDate, _ := time.Parse("2006-01-02", v.DueDate)

		entries = append(entries, threatintel.NewKEVEntry(
			v.CVEID,
			v.VendorProject,
			v.Product,
			v.VulnerabilityName,
			dateAdded,
			dueDate,
			v.KnownRansomwareCampaignUse,
			v.Notes,
		))
	}
	return entries, nil
}
