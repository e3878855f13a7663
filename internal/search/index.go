// Package search indexes leads and interactions in Elasticsearch and serves
// full-text queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	apperrors "lead-orchestrator/internal/common/errors"
	"lead-orchestrator/internal/common/logger"
	"lead-orchestrator/internal/models"
)

const (
	DefaultLeadsIndex        = "leads"
	DefaultInteractionsIndex = "interactions"
)

type Index struct {
	es                *elasticsearch.Client
	leadsIndex        string
	interactionsIndex string
	logger            logger.Logger
}

func New(es *elasticsearch.Client, leadsIndex, interactionsIndex string, log logger.Logger) *Index {
	if leadsIndex == "" {
		leadsIndex = DefaultLeadsIndex
	}
	if interactionsIndex == "" {
		interactionsIndex = DefaultInteractionsIndex
	}
	return &Index{
		es:                es,
		leadsIndex:        leadsIndex,
		interactionsIndex: interactionsIndex,
		logger:            log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

func (x *Index) IndexLead(ctx context.Context, lead models.Lead) error {
	return x.put(ctx, x.leadsIndex, strconv.FormatInt(lead.ID, 10), lead)
}

// IndexInteraction stores the interaction together with its lead's identity
// so hits can be rendered without a join.
func (x *Index) IndexInteraction(ctx context.Context, it models.Interaction, lead models.Lead) error {
	doc := models.InteractionHit{
		InteractionID:   it.ID,
		LeadID:          it.LeadID,
		InteractionType: it.InteractionType,
		Content:         it.Content,
		CreatedAt:       it.CreatedAt,
		LeadName:        lead.Name,
		LeadEmail:       lead.Email,
		LeadCompany:     lead.Company,
	}
	return x.put(ctx, x.interactionsIndex, strconv.FormatInt(it.ID, 10), doc)
}

func (x *Index) put(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(index, fmt.Errorf("index document %s: %s", id, res.Status()))
	}
	return nil
}

func (x *Index) SearchLeads(ctx context.Context, req models.SearchRequest) ([]models.Lead, error) {
	var out []models.Lead
	if err := x.search(ctx, x.leadsIndex, buildLeadQuery(req), req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (x *Index) SearchInteractions(ctx context.Context, req models.SearchRequest) ([]models.InteractionHit, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match": map[string]interface{}{"content": req.Query},
		},
		"sort": []interface{}{map[string]interface{}{"created_at": "desc"}},
	}
	var out []models.InteractionHit
	if err := x.search(ctx, x.interactionsIndex, query, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func buildLeadQuery(req models.SearchRequest) map[string]interface{} {
	must := []interface{}{
		map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  req.Query,
				"fields": []string{"name^2", "email", "company^2", "job_title", "notes"},
			},
		},
	}
	var filter []interface{}
	if f := req.Filters; f != nil {
		if f.Status != "" {
			filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"status": f.Status}})
		}
		if f.LeadSource != "" {
			filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"lead_source": f.LeadSource}})
		}
		if f.MinScore != nil || f.MaxScore != nil {
			rng := map[string]interface{}{}
			if f.MinScore != nil {
				rng["gte"] = *f.MinScore
			}
			if f.MaxScore != nil {
				rng["lte"] = *f.MaxScore
			}
			filter = append(filter, map[string]interface{}{"range": map[string]interface{}{"score": rng}})
		}
	}
	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	return map[string]interface{}{"query": map[string]interface{}{"bool": boolQuery}}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// search runs query against index and decodes each hit's _source into an
// element of the slice pointed to by out.
func (x *Index) search(ctx context.Context, index string, query map[string]interface{}, req models.SearchRequest, out interface{}) error {
	body, err := json.Marshal(query)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	from, size := req.Offset, req.Limit
	sreq := esapi.SearchRequest{
		Index: []string{index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}
	res, err := sreq.Do(ctx, x.es)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperrors.NewSearchQueryFailedError(index, fmt.Errorf("%s: %s", res.Status(), msg))
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	sources := make([]json.RawMessage, len(sr.Hits.Hits))
	for i, h := range sr.Hits.Hits {
		sources[i] = h.Source
	}
	joined, err := json.Marshal(sources)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}
	if err := json.Unmarshal(joined, out); err != nil {
		return apperrors.NewSearchQueryFailedError(index, err)
	}

	x.logger.Debug("Search completed", map[string]interface{}{"index": index, "hits": len(sources)})
	return nil
}
