// Command seed-db loads the catalog seed file and provisions API keys for
// local development and deployments.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/solentra/storefront/internal/repository"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	IsFeatured  bool            `json:"isFeatured"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		customerKey  string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or STORE_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if customerKey == "" {
		customerKey = os.Getenv("STORE_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" && customerKey == "" {
		slog.Error("at least one API key is required: set --admin-key, --customer-key, or the STORE_SEED_* envs")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, customerKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, customerKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if adminKey != "" {
		if err := seedAPIKey(ctx, pool, "admin", "Admin key", adminKey, pepper, []string{"admin"}); err != nil {
			return errors.Wrap(err, "seed admin api key")
		}
	}
	if customerKey != "" {
		if err := seedAPIKey(ctx, pool, "customer", "Customer test key", customerKey, pepper, nil); err != nil {
			return errors.Wrap(err, "seed customer api key")
		}
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products (id, name, description, price, image, category, is_featured)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	description = EXCLUDED.description,
	price = EXCLUDED.price,
	image = EXCLUDED.image,
	category = EXCLUDED.category,
	is_featured = EXCLUDED.is_featured`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, p := range products {
		g.Go(func() error {
			_, err := pool.Exec(ctx, upsertProductSQL,
				p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.IsFeatured,
			)
			if err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
			slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
			return nil
		})
	}
	return g.Wait()
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, user_id, scopes, active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (id) DO UPDATE SET
	key_hash = EXCLUDED.key_hash,
	name = EXCLUDED.name,
	user_id = EXCLUDED.user_id,
	scopes = EXCLUDED.scopes,
	active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, id, name, key, pepper string, scopes []string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(key))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if scopes == nil {
		scopes = []string{}
	}
	userID := "user_" + id

	if _, err := pool.Exec(ctx, upsertAPIKeySQL, id, keyHash, name, userID, scopes); err != nil {
		return errors.Wrapf(err, "upsert API key %s", id)
	}

	slog.Info("upserted API key", slog.String("id", id), slog.String("name", name))
	return nil
}
