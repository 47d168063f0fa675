package ws

import (
	"fmt"
	"log"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/akinalp/adminpulse/models"
)

// WebSocket bağlantı sabitleri
const (
	// writeWait: Bir mesajı yazmak için maksimum bekleme süresi.
	writeWait = 10 * time.Second

	// pongWait: Client'ın heartbeat göndermesi için beklenen maksimum süre.
	// 3 heartbeat kaçırma = 30s × 3 = 90s.
	pongWait = 90 * time.Second

	// maxMessageSize: Client'ın gönderebileceği maksimum mesaj boyutu (byte).
	// Client sadece subscribe/unsubscribe/heartbeat gönderir: küçük mesajlar.
	maxMessageSize = 4096

	// sendBufferSize: Her client'ın send channel'ının buffer boyutu.
	// Buffer doluysa (client yavaş) client disconnect edilir.
	sendBufferSize = 256

	// maxSubscriptions: Tek bir bağlantının açabileceği subscription sayısı.
	maxSubscriptions = 32
)

// subscription, client'ın açtığı tek bir tablo channel'ı.
type subscription struct {
	table  string
	filter *models.Filter
}

// Client, tek bir WebSocket bağlantısını temsil eder.
//
// Her bağlantı için iki goroutine çalışır:
// - ReadPump: Client'dan gelen subscribe/unsubscribe/heartbeat mesajlarını okur
// - WritePump: Hub'dan gelen mesajları client'a yazar
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
	mu     sync.Mutex // conn.WriteMessage çağrılarını korur

	// subs: ref → subscription. ReadPump yazar, Hub.PublishChange okur.
	subMu sync.RWMutex
	subs  map[string]subscription
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]subscription),
	}
}

// ReadPump, WebSocket bağlantısından gelen mesajları okur ve işler.
// Bağlantı kapandığında Hub'dan çıkış yapar ve kaynakları temizler.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("[ws] failed to set read deadline for admin %s: %v", c.userID, err)
		return
	}

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] unexpected close for admin %s: %v", c.userID, err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(rawMessage, &event); err != nil {
			log.Printf("[ws] invalid message from admin %s: %v", c.userID, err)
			continue
		}

		c.handleEvent(event)
	}
}

// handleEvent, client'dan gelen event'leri türüne göre işler.
func (c *Client) handleEvent(event Event) {
	switch event.Op {
	case OpHeartbeat:
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			log.Printf("[ws] failed to set read deadline for admin %s: %v", c.userID, err)
			return
		}
		c.sendEvent(Event{Op: OpHeartbeatAck})

	case OpSubscribe:
		c.handleSubscribe(event)

	case OpUnsubscribe:
		c.handleUnsubscribe(event)

	default:
		log.Printf("[ws] unknown op from admin %s: %s", c.userID, event.Op)
	}
}

// handleSubscribe, subscribe isteğini işler.
//
// Client { op: "subscribe", ref: "r1", d: { table: "orders", filter: "status=eq.Pending" } }
// gönderir. Önce subscribe_ok cevabı kuyruğa alınır, sonra subscription kaydedilir:
// böylece bu ref'e ait ilk change event'i her zaman cevaptan sonra gelir.
func (c *Client) handleSubscribe(event Event) {
	if event.Ref == "" {
		log.Printf("[ws] subscribe without ref from admin %s", c.userID)
		return
	}

	var data SubscribeData
	if err := DecodeData(event.Data, &data); err != nil {
		c.replyError(event.Ref, "invalid subscribe payload")
		return
	}

	sub, err := c.parseSubscription(data)
	if err != nil {
		c.replyError(event.Ref, err.Error())
		return
	}

	c.subMu.Lock()
	_, exists := c.subs[event.Ref]
	full := len(c.subs) >= maxSubscriptions
	c.subMu.Unlock()
	if exists {
		c.replyError(event.Ref, "ref already in use")
		return
	}
	if full {
		c.replyError(event.Ref, "too many subscriptions")
		return
	}

	topic := data.Table
	if sub.filter != nil {
		topic += ":" + sub.filter.String()
	}
	c.sendEvent(Event{Op: OpSubscribeOK, Ref: event.Ref, Data: SubscribeReply{Topic: topic}})

	c.subMu.Lock()
	c.subs[event.Ref] = sub
	c.subMu.Unlock()

	log.Printf("[ws] admin %s subscribed to %s (ref=%s)", c.userID, topic, event.Ref)
}

func (c *Client) parseSubscription(data SubscribeData) (subscription, error) {
	if !c.hub.AllowsTable(data.Table) {
		return subscription{}, fmt.Errorf("unknown table %q", data.Table)
	}
	sub := subscription{table: data.Table}
	if data.Filter != "" {
		f, err := models.ParseFilter(data.Filter)
		if err != nil {
			return subscription{}, err
		}
		sub.filter = &f
	}
	return sub, nil
}

// handleUnsubscribe, ref'e ait subscription'ı kaldırır. Bilinmeyen ref sessizce yok sayılır.
func (c *Client) handleUnsubscribe(event Event) {
	c.subMu.Lock()
	delete(c.subs, event.Ref)
	c.subMu.Unlock()
}

// matching, tablo + satıra uyan subscription ref'leri.
func (c *Client) matching(table string, row models.Row) []string {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	var refs []string
	for ref, sub := range c.subs {
		if sub.table != table {
			continue
		}
		if sub.filter != nil && !sub.filter.Match(row) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func (c *Client) replyError(ref, msg string) {
	log.Printf("[ws] subscribe rejected for admin %s (ref=%s): %s", c.userID, ref, msg)
	c.sendEvent(Event{Op: OpSubscribeError, Ref: ref, Data: SubscribeReply{Error: msg}})
}

// sendEvent, client'a tek bir event gönderir.
func (c *Client) sendEvent(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event for admin %s: %v", c.userID, err)
		return
	}

	// send channel'ı Hub write lock'u altında kapatılır; kayıtlı olduğumuzu
	// read lock altında kontrol etmek kapalı channel'a yazmayı önler.
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c.userID][c] {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer dolu: client muhtemelen donmuş, bağlantıyı kapat
		log.Printf("[ws] send buffer full for admin %s, dropping connection", c.userID)
		go c.hub.drop(c)
	}
}

// WritePump, Hub'dan gelen mesajları WebSocket bağlantısına yazar.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			// Channel kapatıldı: Hub client'ı çıkardı
			c.writeMessage(websocket.CloseMessage, nil)
			return
		}

		if err := c.writeMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// writeMessage, WebSocket'e mesaj yazar (mutex ile korunur).
// gorilla/websocket conn'a aynı anda birden fazla yazma yasak.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
