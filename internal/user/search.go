package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	platformes "waste_ops_backend/internal/platform/elasticsearch"
)

// SearchIndex is the full-text index over local users.
type SearchIndex interface {
	IndexUser(ctx context.Context, doc Document) error
	BulkIndex(ctx context.Context, docs []Document, refresh string) (indexed, failed int, err error)
	Search(ctx context.Context, query string, from, size int) ([]Document, int64, error)
}

// ElasticsearchIndex implements SearchIndex on the users index.
type ElasticsearchIndex struct {
	client *platformes.ESClientWrapper
	logger *zap.Logger
}

// NewElasticsearchIndex returns nil when client is nil so that callers see a
// disabled index rather than a typed nil.
func NewElasticsearchIndex(client *platformes.ESClientWrapper, logger *zap.Logger) SearchIndex {
	if client == nil {
		return nil
	}
	return &ElasticsearchIndex{client: client, logger: logger.Named("UserSearchIndex")}
}

func (e *ElasticsearchIndex) IndexUser(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshalling user to JSON for ES: %w", err)
	}
	req := esapi.IndexRequest{
		Index:      platformes.UsersIndexName,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return fmt.Errorf("indexing user %s: %w", doc.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indexing user %s: status %s", doc.ID, res.Status())
	}
	return nil
}

// BulkIndex writes docs with one bulk request and reports per-item results.
func (e *ElasticsearchIndex) BulkIndex(ctx context.Context, docs []Document, refresh string) (int, int, error) {
	if len(docs) == 0 {
		return 0, 0, nil
	}

	var body strings.Builder
	for _, doc := range docs {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return 0, 0, fmt.Errorf("error marshalling user %s: %w", doc.ID, err)
		}
		fmt.Fprintf(&body, `{"index":{"_index":"%s","_id":"%s"}}`+"\n", platformes.UsersIndexName, doc.ID)
		body.Write(docJSON)
		body.WriteString("\n")
	}

	req := esapi.BulkRequest{
		Body:    strings.NewReader(body.String()),
		Refresh: refresh,
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return 0, 0, fmt.Errorf("sending bulk request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, 0, fmt.Errorf("bulk request returned %s", res.Status())
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string                 `json:"_id"`
				Status int                    `json:"status"`
				Error  map[string]interface{} `json:"error,omitempty"`
			} `json:"index"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return 0, 0, fmt.Errorf("parsing bulk response: %w", err)
	}

	indexed, failed := 0, 0
	for _, item := range bulkResponse.Items {
		if item.Index.Error != nil {
			e.logger.Error("Failed to index document in bulk batch",
				zap.String("userID", item.Index.ID),
				zap.Any("error", item.Index.Error),
				zap.Int("status", item.Index.Status),
			)
			failed++
			continue
		}
		indexed++
	}
	return indexed, failed, nil
}

// Search matches query against user name, email and names.
func (e *ElasticsearchIndex) Search(ctx context.Context, query string, from, size int) ([]Document, int64, error) {
	q := map[string]interface{}{
		"from": from,
		"size": size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"user_name^2", "email^2", "first_name", "last_name"},
				"fuzziness": "AUTO",
			},
		},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, 0, fmt.Errorf("error marshalling search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{platformes.UsersIndexName},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client.Client)
	if err != nil {
		return nil, 0, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search returned %s", res.Status())
	}

	var searchResponse struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResponse); err != nil {
		return nil, 0, fmt.Errorf("parsing search response: %w", err)
	}

	docs := make([]Document, 0, len(searchResponse.Hits.Hits))
	for _, h := range searchResponse.Hits.Hits {
		docs = append(docs, h.Source)
	}
	return docs, searchResponse.Hits.Total.Value, nil
}
