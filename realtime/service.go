// Package realtime, admin dashboard'un global gerçek zamanlı senkronizasyon katmanıdır.
//
// Tek bir Service, süreç boyunca yaşar ve şunları yapar:
//   - backing store'un change feed'inde beş channel açar (notifications, messages,
//     conversations, orders, appointments), aralarında sabit gecikmeyle
//   - gelen event'leri Dispatcher ile paylaşılan Store'a uygular
//   - bağlantı bozulunca exponential backoff ile yeniden kurar
//   - badge sayaçlarını ve working set'leri read-only projection olarak sunar
//
// Consumer'lar (HTTP handler'lar, SSE stream) kendi subscription'larını yönetmez;
// sadece Store'u okur veya Watch ile dinler.
//
// Akış:
//
//	Initialize(identity) → LoadAll → setup (stagger) → verify
//	feed event → Dispatcher.Handle → Store → Watch consumer'ları
//	channel hatası / verify başarısız / health check → backoff → setup
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
)

// Service, realtime katmanının dışa açık yüzü.
type Service struct {
	cfg        Config
	clock      clock.Clock
	store      *Store
	dispatcher *Dispatcher
	subs       *subscriptionManager
	backoff    *backoffController
	monitor    *healthMonitor

	mu       sync.Mutex
	identity string
	active   bool
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
}

// Option, Service yapılandırma seçeneği.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock clock.Clock
	alert func(models.Row)
}

// WithClock, tüm zamanlayıcılar için kullanılacak saat. Testlerde testclock.
func WithClock(clk clock.Clock) Option {
	return func(o *serviceOptions) { o.clock = clk }
}

// WithAlertFunc, yeni high/medium öncelikli bildirimler için çağrılacak fonksiyon.
// Feed goroutine'inden çağrılır: uzun iş yapacaksa kendi goroutine'ini açmalı.
func WithAlertFunc(fn func(models.Row)) Option {
	return func(o *serviceOptions) { o.alert = fn }
}

// NewService, servisi oluşturur. Hiçbir bağlantı açmaz; Initialize bekler.
func NewService(feed ChangeFeed, querier Querier, cfg Config, opts ...Option) (*Service, error) {
	if feed == nil || querier == nil {
		return nil, fmt.Errorf("realtime: feed and querier are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("realtime: invalid config: %w", err)
	}

	o := serviceOptions{clock: clock.WallClock}
	for _, opt := range opts {
		opt(&o)
	}

	store := NewStore(cfg.PageSize, o.clock)
	s := &Service{
		cfg:        cfg,
		clock:      o.clock,
		store:      store,
		dispatcher: newDispatcher(store, querier, o.clock, cfg, o.alert),
		subs:       newSubscriptionManager(feed, o.clock, cfg),
		backoff:    newBackoffController(o.clock, cfg.BackoffBase, cfg.BackoffMax),
		monitor:    newHealthMonitor(querier, o.clock, cfg.HealthInterval),
	}

	s.subs.onVerified = s.handleVerified
	s.subs.onDegraded = s.handleDegraded
	s.backoff.retry = s.reconnect
	s.backoff.onChange = s.connectionChanged
	s.monitor.onFailure = s.handleDegraded
	return s, nil
}

// Initialize, verilen admin için realtime session'ı başlatır.
//
//   - identity boşsa sadece loglanır.
//   - Aynı identity ile aktif session varsa no-op.
//   - Farklı identity ile aktif session varsa önce tamamen kapatılır.
//
// Önce tüm veriler authoritative olarak yüklenir (ctx bu yüklemeyi sınırlar),
// sonra channel'lar açılır. Channel kurulumu bitene kadar bloklar; kurulum
// hatası dönmez, LastError ve backoff ile ele alınır.
func (s *Service) Initialize(ctx context.Context, identity string) {
	if identity == "" {
		log.Println("[realtime] initialize skipped: no admin identity")
		return
	}

	s.mu.Lock()
	if s.active && s.identity == identity {
		s.mu.Unlock()
		return
	}
	switching := s.active
	s.mu.Unlock()

	if switching {
		log.Printf("[realtime] identity changed, tearing down previous session")
		s.Cleanup()
	}

	s.mu.Lock()
	if s.active {
		// Eşzamanlı başka bir Initialize önce davrandı.
		s.mu.Unlock()
		return
	}
	s.active = true
	s.identity = identity
	s.gen = s.store.activate(identity)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	gen, runCtx := s.gen, s.ctx
	s.mu.Unlock()

	s.dispatcher.resetDedupe()
	log.Printf("[realtime] initializing for admin %s", identity)

	s.backoff.Connecting()
	if err := s.dispatcher.LoadAll(ctx, gen); err != nil {
		log.Printf("[realtime] initial load incomplete: %v", err)
	}

	// Yükleme sürerken Cleanup çalıştıysa channel açılmaz.
	s.mu.Lock()
	current := s.active && s.gen == gen
	s.mu.Unlock()
	if !current {
		log.Println("[realtime] session closed during initial load")
		return
	}

	s.monitor.start(runCtx)
	s.connect(runCtx, gen, identity)
}

// UpdateIdentity, oturum değişikliklerini uygular.
// Boş identity (logout) session'ı kapatır; yeni identity yeniden başlatır.
func (s *Service) UpdateIdentity(identity string) {
	if identity == "" {
		log.Println("[realtime] identity cleared, shutting down session")
		s.Cleanup()
		return
	}

	s.mu.Lock()
	same := s.active && s.identity == identity
	s.mu.Unlock()
	if same {
		return
	}
	s.Initialize(context.Background(), identity)
}

// ForceRefresh, tüm koleksiyonları ve sayaçları yeniden yükler.
// Aktif session yoksa no-op.
func (s *Service) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	active, gen := s.active, s.gen
	s.mu.Unlock()

	if !active {
		log.Println("[realtime] refresh skipped: no active session")
		return nil
	}
	return s.dispatcher.LoadAll(ctx, gen)
}

// Cleanup, tüm channel'ları kapatır, zamanlayıcıları iptal eder ve state'i
// temizler. Her durumda ve tekrar tekrar çağrılabilir. Dönüşünden sonra
// eski session'a ait hiçbir event store'u değiştiremez.
func (s *Service) Cleanup() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
	s.identity = ""
	s.mu.Unlock()

	s.store.reset()
	s.monitor.stop()
	s.subs.cleanup()
	s.backoff.Stop()
}

// Close, Cleanup yapar ve arka plan kaynaklarını bırakır. Sonrasında servis kullanılmamalı.
func (s *Service) Close() {
	s.Cleanup()
	s.dispatcher.close()
}

// Store, read-only projection'lar.
func (s *Service) Store() *Store {
	return s.store
}

// Identity, aktif admin kimliği.
func (s *Service) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// IsConnected, tüm channel'lar açık ve doğrulanmış mı.
func (s *Service) IsConnected() bool {
	return s.store.IsConnected()
}

// Connection, bağlantı özeti.
func (s *Service) Connection() models.ConnectionStatus {
	return s.store.Connection()
}

// Channels, açık channel'ların durumu.
func (s *Service) Channels() []models.ChannelInfo {
	return s.subs.channels()
}

// connect, channel kurulumunu çalıştırır; hata varsa backoff'a devreder.
func (s *Service) connect(ctx context.Context, gen uint64, identity string) {
	deliver := func(ev models.ChangeEvent) {
		s.dispatcher.Handle(ctx, gen, ev)
	}

	err := s.subs.setup(ctx, identity, deliver)
	switch {
	case err == nil:
	case errors.Is(err, ErrSetupInProgress):
		log.Println("[realtime] setup already in progress, skipping")
	case errors.Is(err, ErrTornDown), ctx.Err() != nil:
		log.Println("[realtime] setup aborted by cleanup")
	default:
		log.Printf("[realtime] subscription setup failed: %v", err)
		s.handleDegraded(err)
	}
}

// reconnect, backoff timer'ı dolunca çalışır.
func (s *Service) reconnect() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	ctx, gen, identity := s.ctx, s.gen, s.identity
	s.mu.Unlock()

	log.Printf("[realtime] reconnecting (attempt %d)", s.backoff.RetryCount())
	s.connect(ctx, gen, identity)
}

func (s *Service) handleVerified() {
	s.store.updateConnection(func(c *models.ConnectionStatus) {
		c.LastError = ""
	})
	s.backoff.Connected()
}

func (s *Service) handleDegraded(err error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}

	s.store.updateConnection(func(c *models.ConnectionStatus) {
		c.IsConnected = false
		c.LastError = err.Error()
	})
	s.backoff.Degrade(err)
}

func (s *Service) connectionChanged(state models.ConnectionState, retryCount int) {
	s.store.updateConnection(func(c *models.ConnectionStatus) {
		c.State = state
		c.RetryCount = retryCount
		c.IsConnected = state == models.ConnConnected
	})
}
