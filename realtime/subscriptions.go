package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
)

// handle, açık (veya açılmakta olan) bir subscription channel'ı.
// Sadece subscriptionManager tarafından oluşturulur ve değiştirilir.
type handle struct {
	id      uint64
	spec    channelSpec
	filter  *models.Filter
	state   models.ChannelState
	channel Channel
}

// subscriptionManager, channel'ların yaşam döngüsünü yönetir.
//
// setup: channel'ları sabit sırayla, aralarında StaggerDelay bekleyerek tek tek açar.
// Her Subscribe çağrısı channel açılana kadar bloklar; biri başarısız olursa
// tüm setup başarısız sayılır (kurtarma backoff sonrası tam yeniden kurulumdur).
// Setup bitince VerifyDelay sonra tüm channel'ların açık olduğu doğrulanır.
//
// inProgress: reentrancy guard. Setup başladığında set edilir, doğrulama
// çalışana (veya setup hata verene) kadar set kalır. Bu sürede gelen setup
// çağrıları ErrSetupInProgress ile döner, yeni channel açılmaz.
//
// epoch: cleanup ile artar. Cleanup'tan önce başlamış bir setup kendi epoch'unun
// eskidiğini görünce açtığı channel'ı kapatır ve ErrTornDown döner.
type subscriptionManager struct {
	feed        ChangeFeed
	clock       clock.Clock
	stagger     time.Duration
	verifyDelay time.Duration
	joinTimeout time.Duration

	// onVerified: doğrulamada tüm channel'lar açık.
	onVerified func()
	// onDegraded: doğrulama başarısız veya açık bir channel hataya düştü.
	onDegraded func(err error)

	mu          sync.Mutex
	handles     []*handle
	nextID      uint64
	inProgress  bool
	epoch       uint64
	verifyTimer clock.Timer
	// stop, cleanup'ta kapatılır; stagger beklemesindeki setup'ı uyandırır.
	stop chan struct{}
}

func newSubscriptionManager(feed ChangeFeed, clk clock.Clock, cfg Config) *subscriptionManager {
	return &subscriptionManager{
		feed:        feed,
		clock:       clk,
		stagger:     cfg.StaggerDelay,
		verifyDelay: cfg.VerifyDelay,
		joinTimeout: cfg.JoinTimeout,
		stop:        make(chan struct{}),
	}
}

// setup, önceki channel'ları kapatır ve tüm channel'ları yeniden açar.
// deliver, açılan her channel'ın event'lerini alır.
func (m *subscriptionManager) setup(ctx context.Context, identity string, deliver func(models.ChangeEvent)) error {
	m.mu.Lock()
	if m.inProgress {
		m.mu.Unlock()
		return ErrSetupInProgress
	}
	if ctx.Err() != nil {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.inProgress = true
	epoch := m.epoch
	stop := m.stop
	stale := m.handles
	m.handles = nil
	if m.verifyTimer != nil {
		m.verifyTimer.Stop()
		m.verifyTimer = nil
	}
	m.mu.Unlock()

	m.closeHandles(stale)

	for i, spec := range channelSpecs {
		if i > 0 && m.stagger > 0 {
			if err := m.wait(ctx, stop); err != nil {
				return m.abort(epoch, err)
			}
		}
		if err := m.open(ctx, epoch, spec, identity, deliver); err != nil {
			return m.abort(epoch, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrTornDown
	}
	m.verifyTimer = m.clock.AfterFunc(m.verifyDelay, func() { m.verify(epoch) })
	return nil
}

// wait, iki channel arasındaki stagger süresini bekler.
// Cleanup veya ctx beklemeyi keser; timer durdurulur ki saatte asılı kalmasın.
func (m *subscriptionManager) wait(ctx context.Context, stop <-chan struct{}) error {
	t := m.clock.NewTimer(m.stagger)
	select {
	case <-t.Chan():
		return nil
	case <-stop:
		t.Stop()
		return ErrTornDown
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

// open, tek bir channel açar ve handle tablosuna ekler.
func (m *subscriptionManager) open(ctx context.Context, epoch uint64, spec channelSpec, identity string, deliver func(models.ChangeEvent)) error {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return ErrTornDown
	}
	m.nextID++
	h := &handle{
		id:     m.nextID,
		spec:   spec,
		filter: spec.filter(identity),
		state:  models.ChannelConnecting,
	}
	m.handles = append(m.handles, h)
	m.mu.Unlock()

	sub := models.Subscription{
		Name:   spec.name,
		Table:  spec.table,
		Filter: h.filter,
		OnStatus: func(state models.ChannelState, err error) {
			m.channelStatus(epoch, h, state, err)
		},
	}

	// Join timeout context ile uygulanır: feed ctx bitince Subscribe'dan dönmeli.
	joinCtx, cancel := context.WithTimeout(ctx, m.joinTimeout)
	ch, err := m.feed.Subscribe(joinCtx, sub, deliver)
	cancel()

	if err != nil {
		m.mu.Lock()
		h.state = models.ChannelError
		m.mu.Unlock()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%s: %w", spec.name, ErrChannelTimeout)
		}
		return fmt.Errorf("subscribe %s: %w", spec.name, err)
	}

	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		if uerr := m.feed.Unsubscribe(ch); uerr != nil {
			log.Printf("[realtime] failed to close late channel %s: %v", spec.name, uerr)
		}
		return ErrTornDown
	}
	h.channel = ch
	if h.state == models.ChannelConnecting {
		h.state = models.ChannelOpen
	}
	m.mu.Unlock()

	log.Printf("[realtime] channel %s open (id=%d topic=%s)", spec.name, h.id, ch.Topic())
	return nil
}

// abort, başarısız setup'ın guard'ını bırakır.
func (m *subscriptionManager) abort(epoch uint64, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != epoch {
		return ErrTornDown
	}
	m.inProgress = false
	return err
}

// channelStatus, feed'in bildirdiği durum değişikliğini handle'a yazar.
// Doğrulanmış (setup dışı) açık bir channel hataya düşerse bağlantı hemen bozulur.
func (m *subscriptionManager) channelStatus(epoch uint64, h *handle, state models.ChannelState, err error) {
	m.mu.Lock()
	if m.epoch != epoch || !m.ownsLocked(h) {
		m.mu.Unlock()
		return
	}
	prev := h.state
	h.state = state
	degrade := prev == models.ChannelOpen &&
		(state == models.ChannelError || state == models.ChannelClosed) &&
		!m.inProgress
	onDegraded := m.onDegraded
	m.mu.Unlock()

	if degrade && onDegraded != nil {
		if err == nil {
			err = ErrChannelError
		}
		onDegraded(fmt.Errorf("%s: %w", h.spec.name, err))
	}
}

// verify, setup'tan VerifyDelay sonra çalışır ve guard'ı bırakır.
func (m *subscriptionManager) verify(epoch uint64) {
	m.mu.Lock()
	if m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	m.verifyTimer = nil
	m.inProgress = false
	var notOpen []string
	for _, h := range m.handles {
		if h.state != models.ChannelOpen {
			notOpen = append(notOpen, h.spec.name)
		}
	}
	complete := len(m.handles) == len(channelSpecs)
	onVerified, onDegraded := m.onVerified, m.onDegraded
	m.mu.Unlock()

	if complete && len(notOpen) == 0 {
		log.Println("[realtime] all channels verified open")
		if onVerified != nil {
			onVerified()
		}
		return
	}
	if onDegraded != nil {
		onDegraded(fmt.Errorf("%w: %s", ErrNotConnected, strings.Join(notOpen, ",")))
	}
}

// cleanup, tüm channel'ları kapatır ve guard'ı sıfırlar. Her durumda güvenle
// ve tekrar tekrar çağrılabilir.
func (m *subscriptionManager) cleanup() {
	m.mu.Lock()
	m.epoch++
	m.inProgress = false
	if m.verifyTimer != nil {
		m.verifyTimer.Stop()
		m.verifyTimer = nil
	}
	handles := m.handles
	m.handles = nil
	close(m.stop)
	m.stop = make(chan struct{})
	m.mu.Unlock()

	m.closeHandles(handles)
}

func (m *subscriptionManager) closeHandles(handles []*handle) {
	for _, h := range handles {
		m.mu.Lock()
		ch := h.channel
		h.channel = nil
		h.state = models.ChannelClosed
		m.mu.Unlock()

		if ch == nil {
			continue
		}
		if err := m.feed.Unsubscribe(ch); err != nil {
			log.Printf("[realtime] failed to unsubscribe %s: %v", h.spec.name, err)
		}
	}
}

func (m *subscriptionManager) ownsLocked(h *handle) bool {
	for _, cur := range m.handles {
		if cur == h {
			return true
		}
	}
	return false
}

// inFlight, setup veya doğrulaması sürüyor mu.
func (m *subscriptionManager) inFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inProgress
}

// channels, handle tablosunun kopyası.
func (m *subscriptionManager) channels() []models.ChannelInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ChannelInfo, 0, len(m.handles))
	for _, h := range m.handles {
		info := models.ChannelInfo{ID: h.id, Name: h.spec.name, Table: h.spec.table, State: h.state}
		if h.filter != nil {
			info.Filter = h.filter.String()
		}
		out = append(out, info)
	}
	return out
}
