// cmd/server is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSuraphong/library-testing/internal/auth"
	"github.com/MrSuraphong/library-testing/internal/database"
	"github.com/MrSuraphong/library-testing/internal/handler"
	"github.com/MrSuraphong/library-testing/internal/lending"
	"github.com/MrSuraphong/library-testing/internal/memstore"
	"github.com/MrSuraphong/library-testing/internal/repository"
)

func main() {
	ctx := context.Background()

	var (
		engine  *lending.Engine
		catalog handler.Catalog
		users   auth.UserStore
	)

	// STORE=memory runs without postgres; everything is lost on exit.
	if getEnv("STORE", "postgres") == "memory" {
		store := memstore.New()
		engine = lending.NewEngine(store, store)
		catalog = store
		users = store
		log.Println("✓ Using in-memory store")
	} else {
		pool, err := database.NewPool(ctx, database.ConfigFromEnv())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.InitSchema(ctx, pool); err != nil {
			log.Fatalf("schema: %v", err)
		}
		log.Println("✓ Connected to PostgreSQL")

		books := repository.NewBookRepository(pool)
		txs := repository.NewTransactionRepository(pool)
		engine = lending.NewEngine(books, txs)
		catalog = books
		users = repository.NewUserRepository(pool)
	}

	h := handler.New(engine, catalog, auth.NewService(users))
	r := handler.NewRouter(h)

	port := getEnv("PORT", "8080")
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
