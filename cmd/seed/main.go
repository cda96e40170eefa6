package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/RoyceAzure/lab/storefront/internal/config"
	"github.com/RoyceAzure/lab/storefront/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/storefront/internal/infra/search"
	"github.com/RoyceAzure/lab/storefront/internal/seeder"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// 將 yaml 商品目錄寫入 products store，並同步 elasticsearch 索引
func main() {
	file := flag.String("file", "cmd/seed/catalog.yaml", "catalog yaml path")
	migrate := flag.Bool("migrate", false, "run products store migration before seeding")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := run(*file, *migrate); err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
}

func run(path string, migrate bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cf, err := config.LoadConfig(config.ConfigPath())
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	catalogFile, err := seeder.LoadCatalog(f)
	if err != nil {
		return err
	}

	conn, err := db.GetDbConn(db.ConnConfig{Driver: cf.ProductsDbDriver, DSN: cf.ProductsDbDSN})
	if err != nil {
		return fmt.Errorf("connect products store: %w", err)
	}
	router := db.NewRouter(map[db.StoreName]*gorm.DB{db.StoreProducts: conn})
	defer router.Close()

	if migrate {
		if err := db.Migrate(ctx, db.StoreProducts, cf.ProductsDbDriver, conn); err != nil {
			return err
		}
	}

	var searcher search.IProductSearcher
	if cf.ElasticsearchURL != "" {
		client, err := search.NewElasticClient(cf.ElasticsearchURL)
		if err != nil {
			log.Warn().Err(err).Msg("elasticsearch unavailable, skip indexing")
		} else {
			es := search.NewElasticProductSearcher(client, cf.ElasticsearchProductIndex)
			if err := es.EnsureIndex(ctx); err != nil {
				return fmt.Errorf("ensure index: %w", err)
			}
			searcher = es
		}
	}

	results := seeder.NewSeeder(db.NewCatalogRepo(conn), searcher).Run(ctx, catalogFile)
	failed, err := printSummary(results)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d products failed", failed, len(results))
	}
	return nil
}

func printSummary(results []seeder.Result) (int, error) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("SKU", "Name", "Price", "Stock", "Status", "Indexed", "Error")

	failed := 0
	for _, r := range results {
		errMsg := ""
		if r.Err != nil {
			errMsg = r.Err.Error()
			failed++
		}
		row := []string{r.SKU, r.Name, r.Price.StringFixed(2), fmt.Sprint(r.Stock), string(r.Status), fmt.Sprint(r.Indexed), errMsg}
		if err := table.Append(row); err != nil {
			return failed, err
		}
	}
	return failed, table.Render()
}
