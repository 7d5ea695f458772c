package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/plantpal/internal/domain"
)

type esRequest struct {
	method string
	path   string
	body   string
}

func newFakeES(t *testing.T, searchResponse string) (*ESIndex, *[]esRequest) {
	t.Helper()

	var mu sync.Mutex
	var requests []esRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, esRequest{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_search"):
			io.WriteString(w, searchResponse)
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"result":"not_found"}`)
		default:
			io.WriteString(w, `{"result":"created"}`)
		}
	}))
	t.Cleanup(srv.Close)

	client, err := NewESClient([]string{srv.URL})
	require.NoError(t, err)
	return NewESIndex(client, "posts"), &requests
}

func TestESIndex_IndexAndRemove(t *testing.T) {
	idx, requests := newFakeES(t, `{}`)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, &domain.Post{
		ID:        "p1",
		Title:     "Fern",
		Caption:   "new plant",
		AuthorID:  "u2",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, idx.Remove(ctx, "p1"))

	require.Len(t, *requests, 2)
	indexReq := (*requests)[0]
	assert.Equal(t, "/posts/_doc/p1", indexReq.path)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(indexReq.body), &doc))
	assert.Equal(t, "Fern", doc["title"])

	assert.Equal(t, http.MethodDelete, (*requests)[1].method)
}

func TestESIndex_Search(t *testing.T) {
	idx, requests := newFakeES(t, `{"hits":{"total":{"value":2},"hits":[{"_id":"p2"},{"_id":"p1"}]}}`)

	ids, total, err := idx.Search(context.Background(), "fern", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []string{"p2", "p1"}, ids)

	require.Len(t, *requests, 1)
	assert.Contains(t, (*requests)[0].body, `"multi_match"`)
}
