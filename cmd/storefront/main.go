package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avstore/storefront/internal/backend"
	"github.com/avstore/storefront/internal/cart"
	"github.com/avstore/storefront/internal/checkout"
	"github.com/avstore/storefront/internal/gateway"
	h "github.com/avstore/storefront/internal/http"
	"github.com/avstore/storefront/internal/journal"
	"github.com/avstore/storefront/internal/publisher"
)

type Config struct {
	HTTPPort string

	BackendURL   string
	BackendToken string

	CartBackend  string // file | redis | mongo
	CartFilePath string
	CartID       string
	RedisAddr    string
	MongoURI     string
	MongoDB      string

	JournalPath  string
	KafkaBrokers []string

	PaymentPageURL string
	Currency       string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		BackendURL:   getEnv("BACKEND_URL", "http://localhost:5000/api"),
		BackendToken: getEnv("BACKEND_TOKEN", ""),

		CartBackend:  getEnv("CART_BACKEND", "file"),
		CartFilePath: getEnv("CART_FILE_PATH", "data/cart.json"),
		CartID:       getEnv("CART_ID", "default"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "storefront"),

		JournalPath:  getEnv("JOURNAL_PATH", "data/journal.db"),
		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),

		PaymentPageURL: getEnv("PAYMENT_PAGE_URL", "https://secure.sampath.lk/pay"),
		Currency:       getEnv("CURRENCY", "LKR"),

		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	persistence, cleanup, err := buildPersistence(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to set up cart persistence: %v", err)
	}
	defer cleanup()

	store := cart.NewStore(ctx, persistence)

	repo, err := journal.Open(cfg.JournalPath)
	if err != nil {
		log.Fatalf("failed to open checkout journal: %v", err)
	}
	if err := repo.RunMigrations(); err != nil {
		log.Fatalf("failed to migrate checkout journal: %v", err)
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendToken, &http.Client{Timeout: 15 * time.Second})
	hosted := gateway.NewHostedPage(cfg.PaymentPageURL)
	orchestrator := checkout.NewOrchestrator(client, store, hosted, repo, cfg.Currency)

	poller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)
	go poller.Run(ctx)

	router := h.NewRouter(
		h.NewCartHandler(store, cfg.RequestTimeout),
		h.NewCheckoutHandler(orchestrator, cfg.RequestTimeout),
		h.NewOrdersHandler(client, repo, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("storefront starting on :%s (cart backend: %s)", cfg.HTTPPort, cfg.CartBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

// buildPersistence picks the cart's durable backend. The file store is the
// default; redis and mongo serve deployments that share the cart across
// instances.
func buildPersistence(ctx context.Context, cfg *Config) (cart.Persistence, func(), error) {
	switch cfg.CartBackend {
	case "file":
		return cart.NewFileStore(cfg.CartFilePath), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				log.Printf("failed to close redis client: %v", err)
			}
		}
		return cart.NewRedisStore(client, cfg.CartID), cleanup, nil

	case "mongo":
		db, err := cart.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Printf("failed to disconnect mongo client: %v", err)
			}
		}
		return cart.NewMongoStore(db, cfg.CartID), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown cart backend %q", cfg.CartBackend)
	}
}
