package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/fjod/go_commerce/internal/cart"
	"github.com/fjod/go_commerce/internal/catalog"
	"github.com/fjod/go_commerce/internal/checkout"
	"github.com/fjod/go_commerce/internal/member"
	"github.com/fjod/go_commerce/internal/money"
	"github.com/fjod/go_commerce/internal/order"
	"github.com/fjod/go_commerce/internal/payment"
	"github.com/fjod/go_commerce/internal/pricing"
	"github.com/fjod/go_commerce/internal/receipt"
	"github.com/fjod/go_commerce/internal/repository"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	log.Println("shop starting...")

	// Database setup
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbName := getEnv("DB_NAME", "commerce")
	migrationsPath := getEnv("MIGRATIONS_PATH", "./internal/repository/migrations")

	port, err := strconv.Atoi(dbPort)
	if err != nil {
		log.Fatalf("Invalid DB_PORT: %v", err)
	}

	creds := &repository.Credentials{
		Host:              dbHost,
		Port:              port,
		User:              dbUser,
		Password:          dbPass,
		DBName:            dbName,
		MigrationsDirPath: migrationsPath,
	}

	repo, err := repository.NewPostgresRepository(creds)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Cart storage: mongo behind a redis cache
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDB := getEnv("MONGO_DB", "commerce")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelConnect()

	db, err := cart.ConnectMongo(connectCtx, mongoURI, mongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to mongo: %v", err)
	}
	if err := cart.CreateIndexes(connectCtx, db); err != nil {
		log.Fatalf("Failed to create mongo indexes: %v", err)
	}
	log.Printf("Connected to mongo at %s", mongoURI)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(connectCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	log.Printf("Connected to redis at %s", redisAddr)

	carts := cart.NewService(cart.NewMongoStore(db), cart.NewRedisCache(redisClient))

	// Catalog seeded for development; a real deployment plugs in its
	// own Catalog implementation.
	cat := catalog.NewMemoryCatalog()
	cat.AddProduct(catalog.Product{ID: 1, Title: "T-Shirt"})
	cat.AddVariation(catalog.Variation{ID: 1, ProductID: 1, Title: "T-Shirt / M"}, money.MustParse("20", "NZD"), 100)
	cat.AddVariation(catalog.Variation{ID: 2, ProductID: 1, Title: "T-Shirt / L"}, money.MustParse("22", "NZD"), 100)

	// Pricing: tax rule and flat shipping from env
	taxCountry := getEnv("TAX_COUNTRY", "NZ")
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.15"))
	if err != nil {
		log.Fatalf("Invalid TAX_RATE: %v", err)
	}
	taxName := getEnv("TAX_NAME", "GST")
	taxInclusive := getEnv("TAX_INCLUSIVE", "false") == "true"

	shippingDefault, err := decimal.NewFromString(getEnv("SHIPPING_DEFAULT", "15"))
	if err != nil {
		log.Fatalf("Invalid SHIPPING_DEFAULT: %v", err)
	}
	shippingLocal, err := decimal.NewFromString(getEnv("SHIPPING_LOCAL", "5"))
	if err != nil {
		log.Fatalf("Invalid SHIPPING_LOCAL: %v", err)
	}

	tax := pricing.NewTaxModifier().SetCountry(taxCountry, taxRate, taxName, taxInclusive)
	shipping := pricing.NewShippingModifier(shippingDefault).SetCountry(taxCountry, shippingLocal)
	chain := pricing.NewChain(tax, shipping)

	members := member.NewMemoryRegistry()
	processor := order.NewProcessor(carts, cat, members, repo, chain)

	gateways := map[string]payment.Gateway{
		"card": payment.NewBreakerGateway("card", payment.StaticGateway{Result: payment.StatusSuccess}),
		"redirect": payment.NewBreakerGateway("redirect", payment.StaticGateway{
			Result: payment.StatusProcessing,
			Target: getEnv("PAYMENT_REDIRECT_URL", "https://pay.example.com/redirect"),
		}),
	}

	svc := checkout.NewService(carts, cat, chain, processor, members, repo, gateways)
	log.Printf("Checkout ready with payment methods %v", svc.Methods())

	// Receipt outbox poller
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	poller := receipt.NewPoller(repo, brokers...)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Run(ctx)
	log.Printf("Receipt poller publishing to %v", brokers)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down shop...")
	cancel()

	disconnectCtx, cancelDisconnect := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelDisconnect()
	if err := db.Client().Disconnect(disconnectCtx); err != nil {
		log.Printf("Failed to disconnect mongo: %v", err)
	}

	log.Println("Shop stopped")
}
