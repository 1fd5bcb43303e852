package user

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	platformes "waste_ops_backend/internal/platform/elasticsearch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newStubIndex serves handler behind a fake Elasticsearch node.
func newStubIndex(t *testing.T, handler http.HandlerFunc) SearchIndex {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := platformes.NewClientForAddress(srv.URL, zap.NewNop())
	require.NoError(t, err)
	return NewElasticsearchIndex(client, zap.NewNop())
}

func TestNewElasticsearchIndex_NilClient(t *testing.T) {
	assert.Nil(t, NewElasticsearchIndex(nil, zap.NewNop()))
}

func TestElasticsearchIndex_Search(t *testing.T) {
	index := newStubIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/_search", r.URL.Path)
		var q map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
		assert.EqualValues(t, 10, q["from"])
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":11},"hits":[{"_source":{"id":"u1","user_name":"crew","email":"crew@ops.io","role":"User"}}]}}`))
	})

	docs, total, err := index.Search(context.Background(), "crew", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
	require.Len(t, docs, 1)
	assert.Equal(t, "crew", docs[0].UserName)
}

func TestElasticsearchIndex_BulkIndex_CountsItemErrors(t *testing.T) {
	var lines int
	index := newStubIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_bulk", r.URL.Path)
		assert.Equal(t, "wait_for", r.URL.Query().Get("refresh"))
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				lines++
			}
		}
		_, _ = w.Write([]byte(`{"errors":true,"items":[
			{"index":{"_id":"a","status":201}},
			{"index":{"_id":"b","status":400,"error":{"type":"mapper_parsing_exception"}}}]}`))
	})

	indexed, failed, err := index.BulkIndex(context.Background(), []Document{{ID: "a"}, {ID: "b"}}, "wait_for")
	require.NoError(t, err)
	assert.Equal(t, 1, indexed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 4, lines)
}

func TestElasticsearchIndex_IndexUser_ErrorStatus(t *testing.T) {
	index := newStubIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/_doc/u1", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	})

	err := index.IndexUser(context.Background(), Document{ID: "u1"})
	assert.Error(t, err)
}
