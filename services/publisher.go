package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/pubsub"
	json "github.com/goccy/go-json"
	"google.golang.org/api/option"

	"github.com/akinalp/adminpulse/feed"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/ws"
)

// publishTimeout, tek bir Pub/Sub publish'inin onay bekleme süresi.
const publishTimeout = 10 * time.Second

// PubSubPublisher, change event'leri Cloud Pub/Sub topic'ine yazan ws.ChangePublisher.
//
// Mesaj gövdesi JSON ChangeEvent'tir; tablo adı ayrıca feed.TableAttribute
// attribute'ünde taşınır. Okuyucu taraf (feed.PubSubClient) mesajı decode
// etmeden tabloya göre eleyebilir.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

var _ ws.ChangePublisher = (*PubSubPublisher)(nil)

// NewPubSubPublisher, topic'e bağlanan publisher oluşturur.
// Topic'in var olduğu varsayılır; varlık kontrolü IAM izni ister.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string, opts ...option.ClientOption) (*PubSubPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	log.Printf("[pubsub] publisher ready for topic %q", topicID)
	topic := client.Topic(topicID)
	// Tablo adı ordering key: bir tablonun değişiklikleri yayın sırasıyla teslim edilir.
	topic.EnableMessageOrdering = true
	return &PubSubPublisher{client: client, topic: topic}, nil
}

// PublishChange, event'i yayınlar ve sunucu onayını bekler.
// Hata loglanır; yazma işlemi zaten commit edilmiştir, geri alınmaz.
func (p *PubSubPublisher) PublishChange(ev models.ChangeEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[pubsub] failed to marshal change event: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:        data,
		Attributes:  map[string]string{feed.TableAttribute: ev.Table},
		OrderingKey: ev.Table,
	})
	if _, err := result.Get(ctx); err != nil {
		log.Printf("[pubsub] failed to publish %s %s id=%s: %v", ev.Type, ev.Table, ev.EntityID(), err)
		// Hatadan sonra key duraklatılır; sonraki event'ler için aç.
		p.topic.ResumePublish(ev.Table)
	}
}

// Close, bekleyen publish'leri gönderir ve client'ı kapatır.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// FanoutPublisher, her event'i sırayla tüm publisher'lara iletir.
// Feed server'da ws hub + Pub/Sub birlikte kullanılırken devreye girer.
type FanoutPublisher []ws.ChangePublisher

func (f FanoutPublisher) PublishChange(ev models.ChangeEvent) {
	for _, p := range f {
		p.PublishChange(ev)
	}
}

// changeEvent, yazma sonrası yayınlanacak event'i kurar.
func changeEvent(table string, op models.Operation, newRow, oldRow models.Row, at time.Time) models.ChangeEvent {
	return models.ChangeEvent{
		Table:           table,
		Type:            op,
		New:             newRow,
		Old:             oldRow,
		CommitTimestamp: at.UTC(),
	}
}
