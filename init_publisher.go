// Package main: change event publisher wire-up.
//
// Service'ler tek bir ws.ChangePublisher'a yazar. Pub/Sub yapılandırılmışsa
// event'ler hem ws hub'ına hem Pub/Sub topic'ine gider (FanoutPublisher);
// yoksa sadece hub'a.
package main

import (
	"context"
	"log"

	"google.golang.org/api/option"

	"github.com/akinalp/adminpulse/config"
	"github.com/akinalp/adminpulse/services"
	"github.com/akinalp/adminpulse/ws"
)

// initPublisher, publisher'ı ve kapanışta çağrılacak close fonksiyonunu döner.
func initPublisher(ctx context.Context, cfg *config.Config, hub *ws.Hub) (ws.ChangePublisher, func()) {
	if !cfg.PubSub.Enabled() {
		log.Println("[main] pubsub mirror disabled (PUBSUB_PROJECT_ID not set)")
		return hub, func() {}
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}

	pub, err := services.NewPubSubPublisher(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic, opts...)
	if err != nil {
		// Pub/Sub olmadan da ws feed'i çalışır; sadece uyar.
		log.Printf("[main] pubsub mirror unavailable: %v", err)
		return hub, func() {}
	}

	log.Printf("[main] pubsub mirror enabled (project=%s topic=%s)", cfg.PubSub.ProjectID, cfg.PubSub.Topic)
	return services.FanoutPublisher{hub, pub}, func() {
		if err := pub.Close(); err != nil {
			log.Printf("[main] failed to close pubsub publisher: %v", err)
		}
	}
}
