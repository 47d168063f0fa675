// Package main, adminpulse feed server'ının giriş noktasıdır.
//
// Feed server pet-shop veritabanının sahibidir: REST ile yazılan her
// değişikliği commit'ten sonra change event olarak yayınlar. Dashboard
// daemon'ları (cmd/dashboard) bu event'leri /ws üzerinden veya Pub/Sub'dan okur.
//
// Wire-up sırası:
//  1. Config
//  2. Database (SQLite + embedded migration'lar)
//  3. Repository'ler
//  4. WebSocket Hub + publisher (hub, opsiyonel Pub/Sub)
//  5. Service'ler, bootstrap admin
//  6. Handler'lar, route'lar, CORS
//  7. HTTP Server + graceful shutdown
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/adminpulse/config"
	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] adminpulse feed server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	repos := initRepositories(db.Conn)

	// ─── 4. WebSocket Hub + publisher ───
	//
	// Hub sadece realtime katmanının dinlediği tablolara subscribe izni verir.
	hub := ws.NewHub(
		models.TableNotifications,
		models.TableMessages,
		models.TableConversations,
		models.TableOrders,
		models.TableAppointments,
	)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, closePublisher := initPublisher(ctx, cfg, hub)
	defer closePublisher()

	// ─── 5. Service Layer ───
	svcs, limiters := initServices(db.Conn, repos, pub, cfg)
	defer limiters.Login.Stop()

	if err := svcs.Auth.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalf("[main] failed to bootstrap admin: %v", err)
	}

	// ─── 6. Handlers + Routes ───
	h := initHandlers(svcs, limiters, hub)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Tokens, repos.Admin, hub)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000", // admin dashboard dev server
			"http://localhost:5173", // Vite
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// ─── 7. HTTP Server ───
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat: daemon'lar channel hatası görür ve
	// backoff'a girer. Sonra HTTP server'ı kapat.
	hub.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] server stopped gracefully")
}
