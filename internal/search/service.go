package search

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"moments/api/internal/apperr"
	"moments/api/internal/parser"
	"moments/api/internal/store"
)

const reindexBatch = 500

// Service is the facade that tries Meilisearch first and falls back to
// PostgreSQL tag links.
type Service struct {
	index   Index
	moments Moments
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewService creates a search service. index may be nil if Meilisearch is
// not configured.
func NewService(index Index, moments Moments, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{index: index, moments: moments, logger: logger.With("component", "search")}
}

func (s *Service) indexReady() bool {
	return s.index != nil && s.index.Healthy()
}

// ByTag returns one page of moments carrying the tag, newest first. The tag
// is normalized the same way hashtags are when content is parsed.
func (s *Service) ByTag(ctx context.Context, raw string, beforeID int64) ([]store.Moment, error) {
	name := parser.NormalizeTag(raw)
	if n := len([]rune(name)); n < parser.MinTagLength || n > parser.MaxTagLength {
		return nil, apperr.ValidationFailed("invalid tag")
	}
	q := Query{Tag: name, BeforeID: beforeID, Limit: PageSize}

	if s.indexReady() {
		moments, err := s.fromIndex(ctx, q)
		if err == nil {
			return moments, nil
		}
		s.logger.WarnContext(ctx, "index search failed, falling back to postgres", "tag", name, "error", err)
	}

	moments, err := s.moments.MomentsByTag(ctx, name, beforeID, PageSize)
	if err != nil {
		return nil, apperr.Internal("search by tag", err)
	}
	return moments, nil
}

func (s *Service) fromIndex(ctx context.Context, q Query) ([]store.Moment, error) {
	ids, err := s.index.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	moments := make([]store.Moment, 0, len(ids))
	for _, id := range ids {
		m, err := s.moments.MomentByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			// deleted after indexing
			continue
		}
		if err != nil {
			return nil, err
		}
		moments = append(moments, m)
	}
	return moments, nil
}

// IndexMoment indexes a moment (fire-and-forget to Meilisearch).
func (s *Service) IndexMoment(m store.Moment) {
	if !s.indexReady() {
		return
	}
	record := RecordFromMoment(m)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.index.IndexMoments([]MomentRecord{record}); err != nil {
			s.logger.Warn("index moment", "moment_id", record.ID, "error", err)
		}
	}()
}

// DeleteMoment removes a moment from the search index (fire-and-forget).
func (s *Service) DeleteMoment(id int64) {
	if !s.indexReady() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.index.DeleteMoment(id); err != nil {
			s.logger.Warn("delete indexed moment", "moment_id", id, "error", err)
		}
	}()
}

// Wait blocks until in-flight index writes finish or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReindexAllFromPG pushes every moment from PostgreSQL into Meilisearch.
func (s *Service) ReindexAllFromPG(ctx context.Context) error {
	if !s.indexReady() {
		return nil
	}
	var afterID int64
	total := 0
	for {
		batch, err := s.moments.MomentsWithTags(ctx, afterID, reindexBatch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}
		records := make([]MomentRecord, len(batch))
		for i, m := range batch {
			records[i] = RecordFromMoment(m)
		}
		if err := s.index.IndexMoments(records); err != nil {
			return err
		}
		total += len(records)
		afterID = batch[len(batch)-1].ID
		if len(batch) < reindexBatch {
			break
		}
	}
	s.logger.InfoContext(ctx, "search reindex complete", "moments", total)
	return nil
}
