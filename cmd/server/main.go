package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dkotelnikov/storefront/internal/config"
	"github.com/dkotelnikov/storefront/internal/db"
	"github.com/dkotelnikov/storefront/internal/es"
	"github.com/dkotelnikov/storefront/internal/events"
	"github.com/dkotelnikov/storefront/internal/handlers"
	"github.com/dkotelnikov/storefront/internal/logging"
	authmw "github.com/dkotelnikov/storefront/internal/middleware/auth"
	loggingmw "github.com/dkotelnikov/storefront/internal/middleware/logging"
	"github.com/dkotelnikov/storefront/internal/payment"
	"github.com/dkotelnikov/storefront/internal/repo"
	"github.com/dkotelnikov/storefront/internal/service"
	"github.com/dkotelnikov/storefront/internal/service/search"
	httpserver "github.com/dkotelnikov/storefront/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	cfg.MustValidate()

	logger := logging.New(cfg.LogLevel)

	database, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Ошибка инициализации БД: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		log.Fatal(err)
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = events.NewProducer(cfg.KafkaBrokers)
	}
	var publisher events.Publisher
	if producer != nil {
		publisher = producer
	}

	var indexer *search.Indexer
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatal(err)
		}
		indexer = &search.Indexer{ES: esClient, Index: "products"}
	}

	userRepo := &repo.UserRepo{DB: database}
	productRepo := &repo.ProductRepo{DB: database}
	cartRepo := &repo.CartRepo{DB: database}
	orderRepo := &repo.OrderRepo{DB: database}

	stripeProvider := payment.NewStripeProvider(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.PublicURL)

	gate := &authmw.Gate{Users: userRepo, JWTSecret: cfg.JWTSecret}
	deps := httpserver.Deps{
		DB:   database,
		Gate: gate,
		AuthHandler: &handlers.AuthHandler{
			Svc: &service.AuthService{Users: userRepo, JWTSecret: cfg.JWTSecret, Producer: publisher},
		},
		CartHandler: &handlers.CartHandler{
			Svc: &service.CartService{Carts: cartRepo, Products: productRepo, Producer: publisher},
		},
		CheckoutHandler: &handlers.CheckoutHandler{
			Svc: &service.CheckoutService{
				Carts:    cartRepo,
				Products: productRepo,
				Orders:   orderRepo,
				Provider: stripeProvider,
				Producer: publisher,
			},
		},
		WebhookHandler: &handlers.WebhookHandler{
			Svc: &service.WebhookService{Orders: orderRepo, Verifier: stripeProvider, Producer: publisher},
		},
		ProductHandler: &handlers.ProductHandler{
			Svc: &service.CatalogService{Products: productRepo, Producer: publisher, Indexer: indexer},
		},
		OrderHandler: &handlers.OrderHandler{Svc: &service.OrderService{Orders: orderRepo}},
		AdminHandler: &handlers.AdminHandler{Svc: &service.AdminService{Users: userRepo}},
	}
	if indexer != nil {
		deps.SearchHandler = &handlers.SearchHandler{Indexer: indexer}
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
