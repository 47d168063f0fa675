package realtime

import (
	"context"
	"errors"

	"github.com/akinalp/adminpulse/models"
)

// ChangeFeed, backing store'un canlı değişiklik akışı.
//
// Subscribe, channel açılana kadar bloklar; channel hata verirse veya ctx
// biterse (join timeout) error döner. Açıldıktan sonraki durum değişiklikleri
// sub.OnStatus ile bildirilir. onEvent feed'in kendi goroutine'inden çağrılır.
//
// İki implementasyon var: feed.SocketClient (websocket) ve feed.PubSubClient.
type ChangeFeed interface {
	Subscribe(ctx context.Context, sub models.Subscription, onEvent func(models.ChangeEvent)) (Channel, error)
	Unsubscribe(ch Channel) error
}

// Channel, feed'in döndürdüğü açık subscription.
type Channel interface {
	Topic() string
}

// Querier, backing store'a okuma sorguları. CountOnly sorgularda satır dönmez.
// repository.TableQuerier bu interface'i karşılar.
type Querier interface {
	Query(ctx context.Context, q models.Query) ([]models.Row, int, error)
}

var (
	// ErrSetupInProgress: başka bir setup (veya onun doğrulaması) sürerken yapılan çağrı.
	ErrSetupInProgress = errors.New("subscription setup already in progress")
	// ErrTornDown: setup sürerken cleanup çağrıldı; açılan channel'lar kapatıldı.
	ErrTornDown = errors.New("subscriptions torn down during setup")
	// ErrChannelTimeout: channel JoinTimeout içinde açılamadı.
	ErrChannelTimeout = errors.New("channel join timed out")
	// ErrChannelError: channel açıldıktan sonra hata durumuna geçti.
	ErrChannelError = errors.New("channel error")
	// ErrNotConnected: doğrulamada açık olmayan channel bulundu.
	ErrNotConnected = errors.New("not all channels are open")
	// ErrHealthCheck: periyodik sağlık sorgusu başarısız.
	ErrHealthCheck = errors.New("backing store health check failed")
)
