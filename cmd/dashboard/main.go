// Package main, adminpulse dashboard daemon'ının giriş noktasıdır.
//
// Daemon admin makinesinde çalışır ve tek bir realtime.Service barındırır:
// change feed'e (feed server /ws veya Cloud Pub/Sub) bağlanır, working set'leri
// ve sayaçları okuma veritabanından yükler, sonucu localhost'taki HTTP API ile
// sunar.
//
// Wire-up sırası:
//  1. Config
//  2. Querier (PostgreSQL veya SQLite)
//  3. Change feed (socket | pubsub)
//  4. Alert sender (Resend, opsiyonel)
//  5. Realtime service (+ FEED_TOKEN varsa ilk session)
//  6. HTTP server + graceful shutdown
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/config"
	"github.com/akinalp/adminpulse/dashboard"
	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/feed"
	"github.com/akinalp/adminpulse/pkg/email"
	"github.com/akinalp/adminpulse/realtime"
	"github.com/akinalp/adminpulse/repository"
	"github.com/akinalp/adminpulse/services"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] adminpulse dashboard daemon starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, feed=%s)", cfg.Dashboard.Port, cfg.Feed.Driver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── 2. Querier ───
	querier, closeDB := initQuerier(cfg)
	defer closeDB()

	// ─── 3. Change feed ───
	//
	// Socket feed'i FEED_TOKEN yoksa dashboard'a açılan session'ın token'ını kullanır.
	var sessionToken atomic.Pointer[string]
	changeFeed, closeFeed := initFeed(ctx, cfg, func(context.Context) (string, error) {
		if t := sessionToken.Load(); t != nil && *t != "" {
			return *t, nil
		}
		if cfg.Feed.Token != "" {
			return cfg.Feed.Token, nil
		}
		return "", errors.New("no feed token: start a session first")
	})
	defer closeFeed()

	// ─── 4. Alerts ───
	var sender email.AlertSender
	if cfg.Email.ResendAPIKey != "" {
		sender, err = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.To)
		if err != nil {
			log.Fatalf("[main] failed to configure alert email: %v", err)
		}
		log.Println("[main] high priority alerts will be emailed")
	}

	// ─── 5. Realtime service ───
	rt, err := realtime.NewService(changeFeed, querier, cfg.Realtime,
		realtime.WithAlertFunc(dashboard.NewAlertFunc(sender)),
	)
	if err != nil {
		log.Fatalf("[main] failed to create realtime service: %v", err)
	}

	tokens := services.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL(), clock.WallClock)

	// Servis token'ı verildiyse daemon açılışta o admin adına session başlatır.
	if cfg.Feed.Token != "" {
		claims, err := tokens.ValidateAccessToken(cfg.Feed.Token)
		if err != nil {
			log.Printf("[main] FEED_TOKEN rejected, waiting for a session: %v", err)
		} else {
			go rt.Initialize(ctx, claims.UserID)
		}
	}

	// ─── 6. HTTP Server ───
	handler := dashboard.New(rt, tokens, dashboard.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		OnSession: func(token string) {
			sessionToken.Store(&token)
		},
	})

	srv := &http.Server{
		Addr:        cfg.Dashboard.Addr(),
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout yok: /api/realtime/events uzun ömürlü bir stream.
		IdleTimeout: 60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] dashboard listening on %s", cfg.Dashboard.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// SSE stream'leri ctx iptaliyle kapanır; önce realtime session'ı bırak.
	rt.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
	}

	log.Println("[main] daemon stopped gracefully")
}

// initQuerier, DATABASE_URL varsa PostgreSQL'e, yoksa yerel SQLite dosyasına bağlanır.
func initQuerier(cfg *config.Config) (realtime.Querier, func()) {
	if cfg.Database.URL != "" {
		conn, err := database.OpenPostgres(cfg.Database.URL)
		if err != nil {
			log.Fatalf("[main] failed to connect to postgres: %v", err)
		}
		log.Println("[main] reading from postgres")
		return repository.NewTableQuerier(conn, repository.DialectPostgres, repository.DefaultSchema),
			func() { conn.Close() }
	}

	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	log.Printf("[main] reading from sqlite %s", cfg.Database.Path)
	return repository.NewTableQuerier(db.Conn, repository.DialectSQLite, repository.DefaultSchema),
		func() { db.Close() }
}

// initFeed, FEED_DRIVER'a göre change feed client'ını oluşturur.
func initFeed(ctx context.Context, cfg *config.Config, token feed.TokenSource) (realtime.ChangeFeed, func()) {
	switch cfg.Feed.Driver {
	case config.FeedPubSub:
		client, err := feed.NewPubSubClient(ctx, feed.PubSubConfig{
			ProjectID:          cfg.PubSub.ProjectID,
			SubscriptionPrefix: cfg.PubSub.SubscriptionPrefix,
			CredentialsFile:    cfg.PubSub.CredentialsFile,
		})
		if err != nil {
			log.Fatalf("[main] failed to create pubsub feed: %v", err)
		}
		log.Printf("[main] change feed: pubsub (project=%s)", cfg.PubSub.ProjectID)
		return client, func() { client.Close() }
	default:
		client, err := feed.NewSocketClient(feed.SocketConfig{URL: cfg.Feed.URL, Token: token})
		if err != nil {
			log.Fatalf("[main] failed to create socket feed: %v", err)
		}
		log.Printf("[main] change feed: socket (%s)", cfg.Feed.URL)
		return client, func() { client.Close() }
	}
}
