// Package cache: Generic in-memory TTL cache.
//
// TTLCache, belirli bir süre sonra otomatik olarak süresi dolan kayıtları tutan
// thread-safe, generic bir cache yapısıdır.
//
// Kullanım alanı: realtime dispatcher'da change event tekrar tespiti.
// Feed yeniden bağlandığında aynı değişikliği (table|id|op|timestamp)
// ikinci kez gönderebilir; SetIfAbsent ile ilk gelen işlenir, tekrarı atlanır.
//
// Süre kontrolü her okumada yapılır, fiziksel silme arka planda periyodik.
package cache

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, generic in-memory TTL cache.
//
//	c := cache.New[string, int](30*time.Second, 5*time.Minute)
//	c.Set("key", 42)
//	val, ok := c.Get("key")
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration

	// clock, süre hesaplarında kullanılan saat. Testlerde testclock verilir;
	// temizleme goroutine'i her zaman gerçek ticker ile çalışır.
	clock clock.Clock

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// Option, TTLCache yapılandırma seçeneği.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock, expiry hesaplarında kullanılacak saati değiştirir.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

// New, yeni bir TTLCache oluşturur ve periyodik temizleme goroutine'ini başlatır.
//
// ttl: her entry'nin yaşam süresi.
// cleanupInterval: süresi dolan entry'lerin map'ten ne sıklıkla silineceği.
func New[K comparable, V any](ttl, cleanupInterval time.Duration, opts ...Option) *TTLCache[K, V] {
	o := options{clock: clock.WallClock}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		clock:       o.clock,
		stopCleanup: make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, key varsa ve süresi dolmamışsa (value, true) döner.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, key'e değeri yazar; TTL yeniden başlar.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// SetIfAbsent, key yoksa (veya süresi dolmuşsa) değeri yazar ve true döner.
// Geçerli bir entry varsa hiçbir şey değişmez, false döner.
//
// Get + Set ayrı çağrılsaydı iki goroutine aynı key'i aynı anda "yok" görüp
// ikisi birden işleyebilirdi; kontrol ve yazma tek lock altında yapılır.
func (c *TTLCache[K, V]) SetIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if e, ok := c.entries[key]; ok && now.Before(e.expiresAt) {
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(c.ttl)}
	return true
}

// Delete, key'i siler.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc, predicate'i sağlayan tüm key'leri siler.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
		}
	}
}

// Clear, tüm cache'i boşaltır. Realtime session kapanırken çağrılır.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
}

// Len, entry sayısı (süresi dolmuş ama henüz silinmemişler dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close, temizleme goroutine'ini durdurur. Birden fazla çağrı güvenlidir.
func (c *TTLCache[K, V]) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
