// Package feed, realtime.ChangeFeed implementasyonlarını içerir.
//
//   - SocketClient: ws paketinin sunucusuna bağlanan WebSocket client'ı
//   - PubSubClient: Cloud Pub/Sub subscription'larından change event okuyan client
//
// İki client da aynı sözleşmeyi uygular: Subscribe channel açılana (veya ctx
// bitene) kadar bloklar, açıldıktan sonraki bozulmalar Subscription.OnStatus ile
// bildirilir. Yeniden bağlanma kararı realtime katmanına aittir: client'lar
// kendiliğinden yeniden subscribe olmaz.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/realtime"
	"github.com/akinalp/adminpulse/ws"
)

const (
	// defaultHeartbeat: sunucunun pongWait'i (90s) içinde 3 heartbeat.
	defaultHeartbeat = 30 * time.Second
	writeWait        = 10 * time.Second
)

// ErrClientClosed, Close sonrası yapılan çağrılar için döner.
var ErrClientClosed = errors.New("feed client closed")

// TokenSource, her bağlantıda kullanılacak access token'ı üretir.
type TokenSource func(ctx context.Context) (string, error)

// StaticToken, sabit bir token döndüren TokenSource.
func StaticToken(token string) TokenSource {
	return func(context.Context) (string, error) { return token, nil }
}

// SocketConfig, SocketClient ayarları.
type SocketConfig struct {
	// URL: ws(s)://host/ws: token query parameter'ı client tarafından eklenir.
	URL   string
	Token TokenSource
	// Heartbeat: 0 ise 30s.
	Heartbeat time.Duration
	Dialer    *websocket.Dialer
}

// socketChannel, SocketClient üzerinden açılmış bir subscription.
type socketChannel struct {
	ref     string
	topic   string
	sub     models.Subscription
	onEvent func(models.ChangeEvent)
	// conn: channel'ın açıldığı bağlantı. Bağlantı koparsa channel ölür.
	conn *socketConn
}

func (c *socketChannel) Topic() string { return c.topic }

// joinResult, bekleyen subscribe isteğinin cevabı.
type joinResult struct {
	topic string
	err   error
}

// pendingJoin, cevabı beklenen subscribe isteği.
type pendingJoin struct {
	ch    *socketChannel
	reply chan joinResult
}

// socketConn, tek bir WebSocket bağlantısı ve ona bağlı state.
type socketConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
}

func (c *socketConn) write(event ws.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SocketClient, ws sunucusuna tek bir WebSocket bağlantısı üzerinden
// birden fazla tablo channel'ı açan realtime.ChangeFeed.
//
// Bağlantı ilk Subscribe'da açılır (lazy). Bağlantı koptuğunda tüm açık
// channel'lar OnStatus(ChannelError) ile bildirilir ve bağlantı bırakılır;
// sonraki Subscribe yeni bağlantı açar.
type SocketClient struct {
	cfg SocketConfig

	mu       sync.Mutex
	conn     *socketConn
	channels map[string]*socketChannel
	pending  map[string]*pendingJoin
	closed   bool
}

var _ realtime.ChangeFeed = (*SocketClient)(nil)

// NewSocketClient, yeni bir SocketClient oluşturur. Bağlantı açmaz.
func NewSocketClient(cfg SocketConfig) (*SocketClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed: socket url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("feed: invalid socket url: %w", err)
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("feed: token source is required")
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = defaultHeartbeat
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	return &SocketClient{
		cfg:      cfg,
		channels: make(map[string]*socketChannel),
		pending:  make(map[string]*pendingJoin),
	}, nil
}

// Subscribe, tablo channel'ını açar ve sunucunun subscribe_ok cevabını bekler.
func (c *SocketClient) Subscribe(ctx context.Context, sub models.Subscription, onEvent func(models.ChangeEvent)) (realtime.Channel, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	ref := uuid.NewString()
	ch := &socketChannel{ref: ref, sub: sub, onEvent: onEvent, conn: conn}
	join := &pendingJoin{ch: ch, reply: make(chan joinResult, 1)}

	c.mu.Lock()
	c.pending[ref] = join
	c.mu.Unlock()

	data := ws.SubscribeData{Table: sub.Table}
	if sub.Filter != nil {
		data.Filter = sub.Filter.String()
	}
	if err := conn.write(ws.Event{Op: ws.OpSubscribe, Ref: ref, Data: data}); err != nil {
		c.forget(ref)
		conn.ws.Close()
		return nil, fmt.Errorf("send subscribe %s: %w", sub.Name, err)
	}

	select {
	case res := <-join.reply:
		if res.err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", sub.Name, res.err)
		}
		return ch, nil
	case <-ctx.Done():
		c.forget(ref)
		// Cevap geç gelirse sunucu tarafında açık kalmasın.
		_ = conn.write(ws.Event{Op: ws.OpUnsubscribe, Ref: ref})
		return nil, ctx.Err()
	}
}

// Unsubscribe, channel'ı kapatır. Bağlantı zaten kopmuşsa sadece yerel kaydı siler.
func (c *SocketClient) Unsubscribe(channel realtime.Channel) error {
	ch, ok := channel.(*socketChannel)
	if !ok {
		return fmt.Errorf("feed: foreign channel %T", channel)
	}

	c.mu.Lock()
	_, open := c.channels[ch.ref]
	delete(c.channels, ch.ref)
	live := c.conn == ch.conn && c.conn != nil
	c.mu.Unlock()

	if !open || !live {
		return nil
	}
	if err := ch.conn.write(ws.Event{Op: ws.OpUnsubscribe, Ref: ch.ref}); err != nil {
		return fmt.Errorf("send unsubscribe %s: %w", ch.sub.Name, err)
	}
	return nil
}

// Close, bağlantıyı kapatır. Açık channel'lar OnStatus(ChannelClosed) alır.
func (c *SocketClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.writeMu.Lock()
	_ = conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.writeMu.Unlock()
	err := conn.ws.Close()
	<-conn.done
	return err
}

// connect, açık bağlantıyı döner; yoksa yenisini açar.
func (c *SocketClient) connect(ctx context.Context) (*socketConn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	if c.conn != nil {
		conn := c.conn
		c.mu.Unlock()
		return conn, nil
	}
	c.mu.Unlock()

	token, err := c.cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("feed token: %w", err)
	}
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	wsConn, _, err := c.cfg.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial feed: %w", err)
	}

	conn := &socketConn{ws: wsConn, done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		wsConn.Close()
		return nil, ErrClientClosed
	}
	if c.conn != nil {
		// Eşzamanlı bir Subscribe bizden önce bağlandı.
		existing := c.conn
		c.mu.Unlock()
		wsConn.Close()
		return existing, nil
	}
	c.conn = conn
	c.mu.Unlock()

	log.Printf("[feed] connected to %s", c.cfg.URL)
	go c.readLoop(conn)
	go c.heartbeat(conn)
	return conn, nil
}

// readLoop, sunucudan gelen mesajları okur ve ilgili channel'a dağıtır.
func (c *SocketClient) readLoop(conn *socketConn) {
	var readErr error
	defer func() {
		close(conn.done)
		c.dropConn(conn, readErr)
	}()

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		var event ws.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[feed] invalid message from server: %v", err)
			continue
		}
		c.dispatch(event)
	}
}

func (c *SocketClient) dispatch(event ws.Event) {
	switch event.Op {
	case ws.OpSubscribeOK, ws.OpSubscribeError:
		var reply ws.SubscribeReply
		if err := ws.DecodeData(event.Data, &reply); err != nil {
			log.Printf("[feed] invalid subscribe reply: %v", err)
		}

		c.mu.Lock()
		join, ok := c.pending[event.Ref]
		delete(c.pending, event.Ref)
		res := joinResult{topic: reply.Topic}
		if event.Op == ws.OpSubscribeError {
			res.err = fmt.Errorf("%w: %s", realtime.ErrChannelError, reply.Error)
		} else if ok {
			// Channel, cevap okunur okunmaz kaydedilir: arkasından gelen
			// change event'i Subscribe dönmeden önce de teslim edilebilir.
			join.ch.topic = reply.Topic
			c.channels[event.Ref] = join.ch
		}
		c.mu.Unlock()

		if ok {
			join.reply <- res
		}

	case ws.OpChange:
		var ev models.ChangeEvent
		if err := ws.DecodeData(event.Data, &ev); err != nil {
			log.Printf("[feed] invalid change payload (ref=%s): %v", event.Ref, err)
			return
		}

		c.mu.Lock()
		ch, ok := c.channels[event.Ref]
		c.mu.Unlock()
		if ok && ch.onEvent != nil {
			ch.onEvent(ev)
		}

	case ws.OpHeartbeatAck:

	default:
		log.Printf("[feed] unknown op from server: %s", event.Op)
	}
}

// heartbeat, bağlantı açık kaldıkça periyodik heartbeat gönderir.
// Yazma başarısız olursa bağlantıyı kapatır; readLoop kopuşu işler.
func (c *SocketClient) heartbeat(conn *socketConn) {
	ticker := time.NewTicker(c.cfg.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.write(ws.Event{Op: ws.OpHeartbeat}); err != nil {
				log.Printf("[feed] heartbeat failed: %v", err)
				conn.ws.Close()
				return
			}
		case <-conn.done:
			return
		}
	}
}

// dropConn, kopan bağlantıya ait tüm channel'ları düşürür.
func (c *SocketClient) dropConn(conn *socketConn, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	closed := c.closed
	var dead []*socketChannel
	for ref, ch := range c.channels {
		if ch.conn == conn {
			dead = append(dead, ch)
			delete(c.channels, ref)
		}
	}
	var waiting []*pendingJoin
	for ref, join := range c.pending {
		if join.ch.conn == conn {
			waiting = append(waiting, join)
			delete(c.pending, ref)
		}
	}
	c.mu.Unlock()

	state := models.ChannelError
	if closed {
		state = models.ChannelClosed
	} else {
		log.Printf("[feed] connection lost: %v (%d channel(s) affected)", cause, len(dead))
	}

	err := fmt.Errorf("%w: connection lost", realtime.ErrChannelError)
	for _, join := range waiting {
		join.reply <- joinResult{err: err}
	}
	for _, ch := range dead {
		if ch.sub.OnStatus != nil {
			ch.sub.OnStatus(state, err)
		}
	}
}

// forget, cevabı artık beklenmeyen subscribe isteğini siler. subscribe_ok
// Subscribe'ın select'inden önce işlendiyse channel da kayıtlıdır; o da silinir.
func (c *SocketClient) forget(ref string) {
	c.mu.Lock()
	delete(c.pending, ref)
	delete(c.channels, ref)
	c.mu.Unlock()
}
