package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxMoments = "moments"

// Meili implements Index via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewMeili creates a Meilisearch client and configures the moments index.
// An unreachable server leaves the client unhealthy until the health loop
// sees it recover.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		done:   make(chan struct{}),
		logger: logger.With("component", "meilisearch"),
	}

	if _, err := m.client.Health(); err != nil {
		m.logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxMoments,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxMoments, "error", err)
	}

	index := m.client.Index(idxMoments)
	filterable := []interface{}{"tags", "id", "authorId"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxMoments, "error", err)
	}
	sortable := []string{"id"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		m.logger.Warn("update sortable attributes", "index", idxMoments, "error", err)
	}
	searchable := []string{"title", "description", "tags", "author"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxMoments, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search returns matching moment ids, newest first.
func (m *Meili) Search(_ context.Context, q Query) ([]int64, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{searchRequest(q)},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	ids := []int64{}
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			if id, ok := hitID(hit); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

func searchRequest(q Query) *meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = PageSize
	}
	sr := &meili.SearchRequest{
		IndexUID:             idxMoments,
		Query:                q.Text,
		Limit:                limit,
		Sort:                 []string{"id:desc"},
		AttributesToRetrieve: []string{"id"},
	}
	if f := filters(q); len(f) > 0 {
		sr.Filter = f
	}
	return sr
}

func filters(q Query) []string {
	var out []string
	if q.Tag != "" {
		out = append(out, fmt.Sprintf("tags = %q", q.Tag))
	}
	if q.BeforeID > 0 {
		out = append(out, "id < "+strconv.FormatInt(q.BeforeID, 10))
	}
	return out
}

func hitID(hit meili.Hit) (int64, bool) {
	raw, ok := hit["id"]
	if !ok {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return id, err == nil
}

// IndexMoments adds or replaces moments in the index.
func (m *Meili) IndexMoments(records []MomentRecord) error {
	if len(records) == 0 {
		return nil
	}
	_, err := m.client.Index(idxMoments).AddDocuments(records, nil)
	return err
}

// DeleteMoment removes a moment from the index.
func (m *Meili) DeleteMoment(id int64) error {
	_, err := m.client.Index(idxMoments).DeleteDocument(strconv.FormatInt(id, 10), nil)
	return err
}
