package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]interface{}
}

// fakeES answers every request with status and body and records what it saw.
type fakeES struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
	body     string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]interface{}
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: body})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeES) last(t *testing.T) capturedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newTestIndex(t *testing.T, fake *fakeES) *Index {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return New(es, "", "", logger.NewNoOpLogger())
}

// ==========================
// Indexing
// ==========================

func TestIndexLead_PutsDocumentByID(t *testing.T) {
	fake := &fakeES{status: http.StatusCreated, body: `{"result":"created"}`}
	idx := newTestIndex(t, fake)

	err := idx.IndexLead(context.Background(), models.Lead{
		ID: 42, Name: "Ada Lovelace", Email: "ada@example.com", Company: models.StringPtr("Analytical"),
		Status: models.LeadStatusNew, Score: 70,
	})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/leads/_doc/42", req.Path)
	assert.Equal(t, "Ada Lovelace", req.Body["name"])
	assert.Equal(t, "Analytical", req.Body["company"])
}

func TestIndexInteraction_DenormalizesLead(t *testing.T) {
	fake := &fakeES{status: http.StatusCreated, body: `{"result":"created"}`}
	idx := newTestIndex(t, fake)

	err := idx.IndexInteraction(context.Background(),
		models.Interaction{ID: 7, LeadID: 42, InteractionType: models.InteractionEmail, Content: models.StringPtr("Sent intro"), CreatedAt: time.Now()},
		models.Lead{ID: 42, Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)

	req := fake.last(t)
	assert.Equal(t, "/interactions/_doc/7", req.Path)
	assert.Equal(t, "Ada Lovelace", req.Body["lead_name"])
	assert.Equal(t, "Sent intro", req.Body["content"])
}

func TestIndexLead_ErrorStatus(t *testing.T) {
	fake := &fakeES{status: http.StatusBadRequest, body: `{"error":"mapper_parsing_exception"}`}
	idx := newTestIndex(t, fake)

	err := idx.IndexLead(context.Background(), models.Lead{ID: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, apperrors.CodeOf(err))
}

// ==========================
// Searching
// ==========================

func TestSearchLeads_BuildsQueryAndDecodesHits(t *testing.T) {
	fake := &fakeES{status: http.StatusOK, body: `{
		"hits": {"total": {"value": 2}, "hits": [
			{"_id": "1", "_source": {"id": 1, "name": "John Smith", "email": "john@techcorp.com", "status": "qualified", "score": 82}},
			{"_id": "2", "_source": {"id": 2, "name": "Jane Roe", "email": "jane@techcorp.com", "status": "qualified", "score": 77}}
		]}}`}
	idx := newTestIndex(t, fake)

	minScore := 70
	leads, err := idx.SearchLeads(context.Background(), models.SearchRequest{
		Query:   "techcorp",
		Filters: &models.SearchFilters{Status: models.LeadStatusQualified, MinScore: &minScore},
		Limit:   10,
		Offset:  5,
	})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, int64(1), leads[0].ID)
	assert.Equal(t, "Jane Roe", leads[1].Name)
	assert.Equal(t, 82, leads[0].Score)

	req := fake.last(t)
	assert.Equal(t, "/leads/_search", req.Path)
	assert.Contains(t, req.Query, "from=5")
	assert.Contains(t, req.Query, "size=10")

	boolQuery := req.Body["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]interface{})
	mm := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
	assert.Equal(t, "techcorp", mm["query"])
	assert.Len(t, boolQuery["filter"], 2)
}

func TestBuildLeadQuery_NoFilters(t *testing.T) {
	q := buildLeadQuery(models.SearchRequest{Query: "cto"})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	_, hasFilter := boolQuery["filter"]
	assert.False(t, hasFilter)
}

func TestSearchInteractions_DecodesHits(t *testing.T) {
	fake := &fakeES{status: http.StatusOK, body: `{"hits": {"hits": [
		{"_source": {"interaction_id": 3, "lead_id": 1, "interaction_type": "phone", "content": "pricing call", "lead_name": "John Smith", "lead_email": "john@techcorp.com"}}
	]}}`}
	idx := newTestIndex(t, fake)

	hits, err := idx.SearchInteractions(context.Background(), models.SearchRequest{Query: "pricing", Limit: 20})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, int64(3), hits[0].InteractionID)
	assert.Equal(t, "pricing call", models.StringValue(hits[0].Content))
	assert.Equal(t, "/interactions/_search", fake.last(t).Path)
}

func TestSearchLeads_ErrorStatus(t *testing.T) {
	fake := &fakeES{status: http.StatusInternalServerError, body: `{"error":"boom"}`}
	idx := newTestIndex(t, fake)

	_, err := idx.SearchLeads(context.Background(), models.SearchRequest{Query: "x", Limit: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeSearchQueryFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "leads")
}
