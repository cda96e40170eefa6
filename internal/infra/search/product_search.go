package search

import (
	"context"
	"fmt"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/google/uuid"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog/log"
)

// ProductDocument 商品索引內容，只存搜尋需要的欄位
type ProductDocument struct {
	ID          string  `json:"id"`
	SKU         string  `json:"sku"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Price       float64 `json:"price"`
}

func NewProductDocument(p *model.Product) ProductDocument {
	price, _ := p.Price.Float64()
	return ProductDocument{
		ID:          p.ID.String(),
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Price:       price,
	}
}

const productIndexMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"sku":         {"type": "keyword"},
			"name":        {"type": "text"},
			"description": {"type": "text"},
			"status":      {"type": "keyword"},
			"price":       {"type": "scaled_float", "scaling_factor": 100}
		}
	}
}`

type IProductSearcher interface {
	EnsureIndex(ctx context.Context) error
	IndexProduct(ctx context.Context, product *model.Product) error
	// SearchProductIDs 依相關度排序回傳商品 id 與總筆數
	SearchProductIDs(ctx context.Context, q string, offset, limit int) ([]uuid.UUID, int64, error)
}

type ElasticProductSearcher struct {
	client *elastic.Client
	index  string
}

// NewElasticClient 不做 sniff，方便在 docker / 單節點環境使用
func NewElasticClient(url string, opts ...elastic.ClientOptionFunc) (*elastic.Client, error) {
	options := append([]elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	}, opts...)
	return elastic.NewClient(options...)
}

func NewElasticProductSearcher(client *elastic.Client, index string) *ElasticProductSearcher {
	return &ElasticProductSearcher{client: client, index: index}
}

func (s *ElasticProductSearcher) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.IndexExists(s.index).Do(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if _, err := s.client.CreateIndex(s.index).BodyString(productIndexMapping).Do(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", s.index, err)
	}
	log.Info().Str("index", s.index).Msg("elasticsearch index created")
	return nil
}

func (s *ElasticProductSearcher) IndexProduct(ctx context.Context, product *model.Product) error {
	_, err := s.client.Index().
		Index(s.index).
		Id(product.ID.String()).
		BodyJson(NewProductDocument(product)).
		Do(ctx)
	return err
}

func (s *ElasticProductSearcher) SearchProductIDs(ctx context.Context, q string, offset, limit int) ([]uuid.UUID, int64, error) {
	query := elastic.NewBoolQuery().
		Must(elastic.NewMultiMatchQuery(q, "name^2", "description").Fuzziness("AUTO")).
		Filter(elastic.NewTermQuery("status", string(model.ProductStatusActive)))

	result, err := s.client.Search().
		Index(s.index).
		Query(query).
		From(offset).
		Size(limit).
		FetchSource(false).
		Do(ctx)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.Id)
		if err != nil {
			log.Warn().Str("index", s.index).Str("doc_id", hit.Id).Msg("skip search hit with invalid id")
			continue
		}
		ids = append(ids, id)
	}
	return ids, result.TotalHits(), nil
}

var _ IProductSearcher = (*ElasticProductSearcher)(nil)
