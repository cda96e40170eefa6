package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *ElasticProductSearcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewElasticClient(server.URL)
	require.NoError(t, err)
	return NewElasticProductSearcher(client, "products")
}

func TestIndexProduct(t *testing.T) {
	product := &model.Product{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		SKU:         "SAREE-A",
		Name:        "Saree A",
		Description: "Banarasi silk",
		Price:       decimal.RequireFromString("1200.50"),
		Status:      model.ProductStatusActive,
	}

	var got ProductDocument
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/products/_doc/"+product.ID.String(), r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"_index":"products","_id":"%s","_version":1,"result":"created"}`, product.ID)
	})

	require.NoError(t, searcher.IndexProduct(context.Background(), product))
	require.Equal(t, "SAREE-A", got.SKU)
	require.Equal(t, "active", got.Status)
	require.InDelta(t, 1200.50, got.Price, 0.001)
}

func TestSearchProductIDs(t *testing.T) {
	first, second := uuid.New(), uuid.New()

	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/_search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 10, body["from"])
		require.EqualValues(t, 5, body["size"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"took": 1,
			"hits": {
				"total": {"value": 12, "relation": "eq"},
				"hits": [
					{"_index": "products", "_id": "%s", "_score": 2.1},
					{"_index": "products", "_id": "not-a-uuid", "_score": 1.5},
					{"_index": "products", "_id": "%s", "_score": 1.2}
				]
			}
		}`, first, second)
	})

	ids, total, err := searcher.SearchProductIDs(context.Background(), "silk", 10, 5)
	require.NoError(t, err)
	require.EqualValues(t, 12, total)
	require.Equal(t, []uuid.UUID{first, second}, ids)
}

func TestSearchProductIDsError(t *testing.T) {
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":500}`)
	})

	_, _, err := searcher.SearchProductIDs(context.Background(), "silk", 0, 5)
	require.Error(t, err)
}

func TestEnsureIndexCreatesWhenMissing(t *testing.T) {
	var created bool
	searcher := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			require.Equal(t, "/products", r.URL.Path)
			created = true
			fmt.Fprint(w, `{"acknowledged":true,"shards_acknowledged":true,"index":"products"}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, searcher.EnsureIndex(context.Background()))
	require.True(t, created)
}
