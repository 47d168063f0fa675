package ws

import (
	"log"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/akinalp/adminpulse/models"
)

// ChangePublisher, service katmanının satır değişikliklerini yayınlamak için
// kullandığı interface.
//
// Dependency Inversion: Service'ler Hub'ın concrete struct'ına değil,
// bu interface'e bağımlıdır. Hub, Pub/Sub publisher'ı veya ikisini birden
// yayınlayan fan-out aynı interface'i karşılar.
type ChangePublisher interface {
	PublishChange(ev models.ChangeEvent)
}

// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır (Observer pattern).
//
// Her client birden fazla tabloya subscribe olabilir. PublishChange çağrıldığında
// Hub tüm client'ların subscription'larını dolaşır; tablo ve filtre eşleşirse
// event o subscription'ın ref'i ile client'a gönderilir.
type Hub struct {
	// clients: userID → Client set (bir admin'in birden fazla sekmesi olabilir).
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// unregister: Client çıkış sinyali. Giriş attach ile senkron yapılır;
	// böylece client'ın ilk mesajı işlenirken kaydı zaten görünür.
	unregister chan *Client

	// seq: Her outbound change event'ine verilen artan sayaç.
	seq atomic.Int64

	// tables: subscribe edilebilecek tablolar. Boşsa her tablo kabul edilir.
	tables map[string]bool

	stop chan struct{}
	once sync.Once
}

// NewHub, yeni bir Hub oluşturur. tables verilirse sadece o tablolara subscribe olunabilir.
func NewHub(tables ...string) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]bool),
		unregister: make(chan *Client),
		tables:     make(map[string]bool, len(tables)),
		stop:       make(chan struct{}),
	}
	for _, t := range tables {
		h.tables[t] = true
	}
	return h
}

// Run, Hub'ın ana event loop'udur. main.go'da `go hub.Run()` ile başlatılır.
// Shutdown çağrılana kadar çalışır.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.unregister:
			h.removeClient(client)

		case <-h.stop:
			return
		}
	}
}

// attach, yeni bir client'ı Hub'a ekler. Hub kapandıysa false döner.
func (h *Hub) attach(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-h.stop:
		return false
	default:
	}

	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]bool)
	}
	h.clients[client.userID][client] = true

	log.Printf("[ws] client connected: admin=%s (connections for admin: %d)",
		client.userID, len(h.clients[client.userID]))
	return true
}

// removeClient, bir client'ı Hub'dan çıkarır ve send channel'ını kapatır.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)

	if len(clients) == 0 {
		delete(h.clients, client.userID)
		log.Printf("[ws] admin fully disconnected: %s", client.userID)
	} else {
		log.Printf("[ws] client disconnected: admin=%s (remaining: %d)", client.userID, len(clients))
	}
}

// PublishChange, event'i tablo + filtresi eşleşen tüm subscription'lara gönderir.
//
// Filtre INSERT/UPDATE'te yeni satıra, DELETE'te silinen satıra uygulanır.
// Yavaş client'lar (buffer dolu) bağlantıdan düşürülür.
func (h *Hub) PublishChange(ev models.ChangeEvent) {
	seq := h.seq.Add(1)
	payload := ev.Payload()

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, clients := range h.clients {
		for client := range clients {
			for _, ref := range client.matching(ev.Table, payload) {
				data, err := json.Marshal(Event{Op: OpChange, Ref: ref, Data: ev, Seq: seq})
				if err != nil {
					log.Printf("[ws] failed to marshal change event: %v", err)
					return
				}
				select {
				case client.send <- data:
					delivered++
				default:
					// Buffer dolu: bu client yavaş, kapat
					go h.drop(client)
				}
			}
		}
	}

	if delivered > 0 {
		log.Printf("[ws] %s %s id=%s delivered to %d subscription(s)", ev.Type, ev.Table, ev.EntityID(), delivered)
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// AllowsTable, tablonun subscribe edilebilir olup olmadığını döner.
func (h *Hub) AllowsTable(table string) bool {
	if len(h.tables) == 0 {
		return table != ""
	}
	return h.tables[table]
}

// ConnectionCount, açık WebSocket bağlantısı sayısı.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

// SubscriptionCount, tüm bağlantılardaki açık subscription sayısı.
func (h *Hub) SubscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.clients {
		for client := range clients {
			client.subMu.RLock()
			n += len(client.subs)
			client.subMu.RUnlock()
		}
	}
	return n
}

// GetOnlineUserIDs, bağlı olan tüm admin ID'lerini döner.
func (h *Hub) GetOnlineUserIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		ids = append(ids, userID)
	}
	return ids
}

// Shutdown, tüm client bağlantılarını kapatır ve Run loop'unu durdurur (graceful shutdown).
func (h *Hub) Shutdown() {
	h.once.Do(func() {
		close(h.stop)

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, clients := range h.clients {
			for client := range clients {
				close(client.send)
			}
		}
		h.clients = make(map[string]map[*Client]bool)
		log.Println("[ws] hub shut down, all connections closed")
	})
}
