package feed

import (
	"context"
	"fmt"
	"log"
	"sync"

	"cloud.google.com/go/pubsub"
	json "github.com/goccy/go-json"
	"google.golang.org/api/option"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/realtime"
)

// TableAttribute, Pub/Sub mesajında değişikliğin tablosunu taşıyan attribute.
// services.PubSubPublisher her mesaja bunu ekler.
const TableAttribute = "table"

// PubSubConfig, PubSubClient ayarları.
type PubSubConfig struct {
	ProjectID string
	// SubscriptionPrefix: tablo başına subscription adı "<prefix>-<table>".
	// Her dashboard instance'ının kendi prefix'i olmalı: aynı subscription'ı
	// paylaşan iki okuyucu mesajları bölüşür.
	SubscriptionPrefix string
	// CredentialsFile: boşsa Application Default Credentials kullanılır.
	CredentialsFile string
}

// pubsubChannel, tek bir Pub/Sub subscription'ı üzerinde çalışan Receive döngüsü.
type pubsubChannel struct {
	topic  string
	cancel context.CancelFunc
	done   chan struct{}
}

func (c *pubsubChannel) Topic() string { return c.topic }

// PubSubClient, Cloud Pub/Sub üzerinden change event okuyan realtime.ChangeFeed.
//
// Pub/Sub'da sunucu tarafı filtre yok: subscription tablonun tüm değişikliklerini
// getirir, Subscription.Filter client tarafında uygulanır. Filtreye uymayan
// mesajlar da ack'lenir.
type PubSubClient struct {
	client *pubsub.Client
	prefix string

	mu       sync.Mutex
	channels map[*pubsubChannel]struct{}
}

var _ realtime.ChangeFeed = (*PubSubClient)(nil)

// NewPubSubClient, Pub/Sub client'ını oluşturur.
func NewPubSubClient(ctx context.Context, cfg PubSubConfig, opts ...option.ClientOption) (*PubSubClient, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("feed: pubsub project id is required")
	}
	if cfg.SubscriptionPrefix == "" {
		return nil, fmt.Errorf("feed: pubsub subscription prefix is required")
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSubClient{
		client:   client,
		prefix:   cfg.SubscriptionPrefix,
		channels: make(map[*pubsubChannel]struct{}),
	}, nil
}

// SubscriptionID, tablonun Pub/Sub subscription adı.
func (c *PubSubClient) SubscriptionID(table string) string {
	return c.prefix + "-" + table
}

// Subscribe, tablonun subscription'ını doğrular ve Receive döngüsünü başlatır.
// Subscription yoksa channel açılamaz.
func (c *PubSubClient) Subscribe(ctx context.Context, sub models.Subscription, onEvent func(models.ChangeEvent)) (realtime.Channel, error) {
	id := c.SubscriptionID(sub.Table)
	s := c.client.Subscription(id)

	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: pubsub subscription %s not found", realtime.ErrChannelError, id)
	}

	// Aynı tablonun event'leri sırayla işlenir: insert'ten önce gelen delete
	// projection'da satırı geri getirmez.
	s.ReceiveSettings.NumGoroutines = 1
	s.ReceiveSettings.MaxOutstandingMessages = 1

	recvCtx, cancel := context.WithCancel(context.Background())
	ch := &pubsubChannel{topic: id, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.channels[ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		defer close(ch.done)
		err := s.Receive(recvCtx, func(_ context.Context, msg *pubsub.Message) {
			handleMessage(sub, msg, onEvent)
		})
		if err != nil && recvCtx.Err() == nil {
			log.Printf("[feed] pubsub receive on %s stopped: %v", id, err)
			if sub.OnStatus != nil {
				sub.OnStatus(models.ChannelError, err)
			}
		}
	}()

	log.Printf("[feed] receiving %s from pubsub subscription %s", sub.Table, id)
	return ch, nil
}

// handleMessage, tek bir Pub/Sub mesajını çözüp filtreye uyarsa teslim eder.
func handleMessage(sub models.Subscription, msg *pubsub.Message, onEvent func(models.ChangeEvent)) {
	// Ack her durumda: bozuk veya ilgisiz mesajın tekrar gelmesi işe yaramaz.
	defer msg.Ack()

	if table := msg.Attributes[TableAttribute]; table != "" && table != sub.Table {
		return
	}

	var ev models.ChangeEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Printf("[feed] invalid pubsub message %s: %v", msg.ID, err)
		return
	}
	if ev.Table != sub.Table {
		return
	}
	if sub.Filter != nil && !sub.Filter.Match(ev.Payload()) {
		return
	}
	if onEvent != nil {
		onEvent(ev)
	}
}

// Unsubscribe, Receive döngüsünü durdurur ve bitmesini bekler.
func (c *PubSubClient) Unsubscribe(channel realtime.Channel) error {
	ch, ok := channel.(*pubsubChannel)
	if !ok {
		return fmt.Errorf("feed: foreign channel %T", channel)
	}

	c.mu.Lock()
	delete(c.channels, ch)
	c.mu.Unlock()

	ch.cancel()
	<-ch.done
	return nil
}

// Close, tüm Receive döngülerini durdurur ve client'ı kapatır.
func (c *PubSubClient) Close() error {
	c.mu.Lock()
	channels := make([]*pubsubChannel, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	c.channels = make(map[*pubsubChannel]struct{})
	c.mu.Unlock()

	for _, ch := range channels {
		ch.cancel()
		<-ch.done
	}
	return c.client.Close()
}
