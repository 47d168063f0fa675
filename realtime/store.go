package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
)

// Store, dashboard'un paylaşılan realtime state'i.
//
// Okuma metodları (Notifications, Counters, Snapshot, ...) herkese açıktır ve
// kopya döner. Yazma sadece paket içinden, Dispatcher üzerinden yapılır.
//
// generation: her session (Initialize → Cleanup) için artan sayı. Yazmalar
// başladıkları generation ile gelir; Cleanup sonrası eski session'dan
// gelen event veya yükleme sonuçları sessizce atılır.
type Store struct {
	mu          sync.RWMutex
	generation  uint64
	identity    string
	pageSize    int
	collections map[models.Entity]*Collection[models.Row]
	counters    models.Counters
	loading     map[models.Entity]bool
	markers     map[models.Entity]models.UpdateMarker
	conn        models.ConnectionStatus
	clock       clock.Clock

	// watchers: Watch ile kaydolan consumer kanalları.
	// Ayrı mutex: bildirim gönderimi state lock'u tutmadan yapılır.
	watchMu     sync.Mutex
	watchers    map[uint64]chan models.StoreChange
	nextWatcher uint64
	seq         atomic.Uint64
}

// NewStore, boş bir store oluşturur.
func NewStore(pageSize int, clk clock.Clock) *Store {
	s := &Store{
		pageSize: pageSize,
		clock:    clk,
		watchers: make(map[uint64]chan models.StoreChange),
		conn:     models.ConnectionStatus{State: models.ConnIdle},
	}
	s.clearLocked()
	return s
}

// clearLocked, veri alanlarını sıfırlar. s.mu tutulurken çağrılmalı.
func (s *Store) clearLocked() {
	s.collections = make(map[models.Entity]*Collection[models.Row], len(collectionSpecs))
	for entity := range collectionSpecs {
		s.collections[entity] = NewCollection(s.pageSize, models.Row.ID)
	}
	s.counters = models.Counters{}
	s.loading = make(map[models.Entity]bool)
	s.markers = make(map[models.Entity]models.UpdateMarker)
}

// ─── Okuma (projection) ───

// Identity, aktif session'ın admin kimliği. Session yoksa "".
func (s *Store) Identity() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// Collection, entity'nin working set'inin kopyası. Koleksiyonu olmayan entity için nil.
func (s *Store) Collection(entity models.Entity) []models.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectionLocked(entity)
}

func (s *Store) collectionLocked(entity models.Entity) []models.Row {
	col, ok := s.collections[entity]
	if !ok {
		return nil
	}
	items := col.Items()
	for i := range items {
		items[i] = items[i].Clone()
	}
	return items
}

// Notifications, admin'in en yeni bildirimleri.
func (s *Store) Notifications() []models.Row { return s.Collection(models.EntityNotification) }

// Conversations, en son mesaj alan konuşmalar.
func (s *Store) Conversations() []models.Row { return s.Collection(models.EntityConversation) }

// Orders, en yeni siparişler.
func (s *Store) Orders() []models.Row { return s.Collection(models.EntityOrder) }

// Appointments, en ileri tarihli randevular.
func (s *Store) Appointments() []models.Row { return s.Collection(models.EntityAppointment) }

// Counters, badge sayaçları.
func (s *Store) Counters() models.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

// Loading, entity için authoritative yükleme sürüyor mu.
func (s *Store) Loading(entity models.Entity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading[entity]
}

// Marker, entity için en son uygulanan değişiklik.
func (s *Store) Marker(entity models.Entity) (models.UpdateMarker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markers[entity]
	if ok {
		m.New = m.New.Clone()
		m.Old = m.Old.Clone()
	}
	return m, ok
}

// Connection, bağlantı özeti.
func (s *Store) Connection() models.ConnectionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// IsConnected, tüm channel'lar açık ve doğrulanmış mı.
func (s *Store) IsConnected() bool {
	return s.Connection().IsConnected
}

// Snapshot, tüm state'in tutarlı bir kopyası (tek lock altında alınır).
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.Snapshot{
		Identity:          s.identity,
		Notifications:     s.collectionLocked(models.EntityNotification),
		Conversations:     s.collectionLocked(models.EntityConversation),
		Orders:            s.collectionLocked(models.EntityOrder),
		Appointments:      s.collectionLocked(models.EntityAppointment),
		Counters:          s.counters,
		NotificationBadge: s.counters.NotificationBadge(),
		TotalUnread:       s.counters.Total(),
		Loading:           make(map[models.Entity]bool, len(s.loading)),
		Markers:           make(map[models.Entity]models.UpdateMarker, len(s.markers)),
		Connection:        s.conn,
		TakenAt:           s.clock.Now(),
	}
	for k, v := range s.loading {
		snap.Loading[k] = v
	}
	for k, m := range s.markers {
		m.New = m.New.Clone()
		m.Old = m.Old.Clone()
		snap.Markers[k] = m
	}
	return snap
}

// Watch, store değişikliklerini dinlemek için kanal döner.
//
// Gönderim non-blocking'dir: buffer dolarsa bildirim o consumer için düşer
// (ws hub'daki yavaş client davranışı gibi). Consumer bildirimi "tekrar oku"
// sinyali olarak kullanmalı, içeriğe güvenmemeli.
// Dönen cancel fonksiyonu kanalı kapatır; birden fazla çağrı güvenlidir.
func (s *Store) Watch(buffer int) (<-chan models.StoreChange, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan models.StoreChange, buffer)

	s.watchMu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	s.watchMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.watchMu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.watchMu.Unlock()
		})
	}
	return ch, cancel
}

func (s *Store) notify(changes []models.StoreChange) {
	if len(changes) == 0 {
		return
	}
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for _, change := range changes {
		change.Seq = s.seq.Add(1)
		for _, ch := range s.watchers {
			select {
			case ch <- change:
			default:
			}
		}
	}
}

// ─── Yazma (paket içi) ───

// activate, yeni bir session başlatır: state temizlenir, generation artar.
func (s *Store) activate(identity string) uint64 {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.identity = identity
	s.clearLocked()
	s.mu.Unlock()

	s.notify([]models.StoreChange{{Topic: models.TopicReset}})
	return gen
}

// reset, session'ı kapatır. Sonrasında eski generation ile gelen yazmalar atılır.
func (s *Store) reset() {
	s.mu.Lock()
	s.generation++
	s.identity = ""
	s.clearLocked()
	s.conn = models.ConnectionStatus{State: models.ConnIdle}
	s.mu.Unlock()

	s.notify([]models.StoreChange{{Topic: models.TopicReset}})
}

// current, aktif generation.
func (s *Store) current() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// apply, gen hâlâ aktifse fn'i yazma lock'u altında çalıştırır.
// false dönerse session değişmiş demektir, hiçbir şey yazılmadı.
func (s *Store) apply(gen uint64, fn func(tx *storeTx)) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	tx := &storeTx{s: s}
	fn(tx)
	s.mu.Unlock()

	s.notify(tx.changes)
	return true
}

// updateConnection, bağlantı özetini günceller. Generation'dan bağımsızdır.
func (s *Store) updateConnection(fn func(c *models.ConnectionStatus)) {
	s.mu.Lock()
	before := s.conn
	fn(&s.conn)
	changed := s.conn != before
	s.mu.Unlock()

	if changed {
		s.notify([]models.StoreChange{{Topic: models.TopicConnection}})
	}
}

// storeTx, apply içindeki yazma işlemleri. Değişiklikleri toplar,
// lock bırakıldıktan sonra watcher'lara tek seferde bildirilir.
type storeTx struct {
	s       *Store
	changes []models.StoreChange
}

func (tx *storeTx) touch(topic models.StoreTopic, entity models.Entity) {
	for _, c := range tx.changes {
		if c.Topic == topic && c.Entity == entity {
			return
		}
	}
	tx.changes = append(tx.changes, models.StoreChange{Topic: topic, Entity: entity})
}

func (tx *storeTx) identity() string {
	return tx.s.identity
}

func (tx *storeTx) collection(entity models.Entity) *Collection[models.Row] {
	return tx.s.collections[entity]
}

func (tx *storeTx) collectionChanged(entity models.Entity) {
	tx.touch(models.TopicCollection, entity)
}

// adjust, sayacı delta kadar değiştirir; sonuç asla sıfırın altına inmez.
func (tx *storeTx) adjust(entity models.Entity, delta int) {
	field := counterField(&tx.s.counters, entity)
	if field == nil || delta == 0 {
		return
	}
	before := *field
	*field += delta
	if *field < 0 {
		*field = 0
	}
	if *field != before {
		tx.touch(models.TopicCounters, entity)
	}
}

func (tx *storeTx) setCounter(entity models.Entity, n int) {
	field := counterField(&tx.s.counters, entity)
	if field == nil {
		return
	}
	if n < 0 {
		n = 0
	}
	if *field != n {
		*field = n
		tx.touch(models.TopicCounters, entity)
	}
}

func (tx *storeTx) setMarker(m models.UpdateMarker) {
	tx.s.markers[m.Entity] = m
	tx.touch(models.TopicMarker, m.Entity)
}

func (tx *storeTx) setLoading(entity models.Entity, v bool) {
	if tx.s.loading[entity] == v {
		return
	}
	tx.s.loading[entity] = v
	tx.touch(models.TopicLoading, entity)
}

func (tx *storeTx) setLastError(msg string) {
	if tx.s.conn.LastError != msg {
		tx.s.conn.LastError = msg
		tx.touch(models.TopicConnection, "")
	}
}
