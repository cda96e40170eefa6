package seeder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/RoyceAzure/lab/storefront/internal/domain/model"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/search"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// CatalogFile 商品目錄 yaml 格式
type CatalogFile struct {
	Products []ProductEntry `yaml:"products"`
}

// ProductEntry 金額以字串保存，避免 float 誤差
type ProductEntry struct {
	model.Product  `yaml:",inline"`
	Price          string `yaml:"price"`
	CompareAtPrice string `yaml:"compare_at_price"`
	CategoryID     string `yaml:"category_id"`
	CollectionID   string `yaml:"collection_id"`
}

func LoadCatalog(r io.Reader) (*CatalogFile, error) {
	var file CatalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return &file, nil
		}
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &file, nil
}

func parseOptionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ToProduct 檢查欄位並轉成 model.Product
func (e ProductEntry) ToProduct() (*model.Product, error) {
	p := e.Product
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" || p.Name == "" {
		return nil, fmt.Errorf("sku and name are required")
	}
	if p.Slug == "" {
		p.Slug = slugify(p.Name)
	}
	if p.Status == "" {
		p.Status = model.ProductStatusActive
	}
	if p.Status != model.ProductStatusActive && p.Status != model.ProductStatusInactive {
		return nil, fmt.Errorf("%s: invalid status %q", p.SKU, p.Status)
	}
	if p.StockQuantity < 0 {
		return nil, fmt.Errorf("%s: stock_quantity must not be negative", p.SKU)
	}

	price, err := decimal.NewFromString(e.Price)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%s: invalid price %q", p.SKU, e.Price)
	}
	p.Price = price.Round(2)

	if e.CompareAtPrice != "" {
		compareAt, err := decimal.NewFromString(e.CompareAtPrice)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid compare_at_price %q", p.SKU, e.CompareAtPrice)
		}
		compareAt = compareAt.Round(2)
		p.CompareAtPrice = &compareAt
	}

	if p.CategoryID, err = parseOptionalUUID(e.CategoryID); err != nil {
		return nil, fmt.Errorf("%s: invalid category_id: %w", p.SKU, err)
	}
	if p.CollectionID, err = parseOptionalUUID(e.CollectionID); err != nil {
		return nil, fmt.Errorf("%s: invalid collection_id: %w", p.SKU, err)
	}
	return &p, nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

type Result struct {
	SKU     string
	Name    string
	Price   decimal.Decimal
	Stock   int
	Status  model.ProductStatus
	Indexed bool
	Err     error
}

type Seeder struct {
	catalog  db.ICatalogRepository
	searcher search.IProductSearcher
}

// NewSeeder searcher 可為 nil，此時不更新搜尋索引
func NewSeeder(catalog db.ICatalogRepository, searcher search.IProductSearcher) *Seeder {
	if catalog == nil {
		panic("seeder missing required dependency catalog repository")
	}
	return &Seeder{catalog: catalog, searcher: searcher}
}

// Run 逐筆寫入，單筆失敗不中斷其他商品
func (s *Seeder) Run(ctx context.Context, file *CatalogFile) []Result {
	results := make([]Result, 0, len(file.Products))
	for _, entry := range file.Products {
		res := Result{SKU: entry.SKU, Name: entry.Name}
		product, err := entry.ToProduct()
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}

		saved, err := s.catalog.UpsertProductBySKU(ctx, product)
		if err != nil {
			res.Err = fmt.Errorf("upsert %s: %w", product.SKU, err)
			results = append(results, res)
			continue
		}
		res.Name, res.Price, res.Stock, res.Status = saved.Name, saved.Price, saved.StockQuantity, saved.Status

		if s.searcher != nil {
			if err := s.searcher.IndexProduct(ctx, saved); err != nil {
				log.Warn().Err(err).Str("sku", saved.SKU).Msg("failed to index product")
			} else {
				res.Indexed = true
			}
		}
		results = append(results, res)
	}
	return results
}
