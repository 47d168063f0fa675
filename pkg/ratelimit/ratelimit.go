// Package ratelimit: LoginRateLimiter: brute-force saldırılarına karşı
// IP bazlı login rate limiting.
//
// Tasarım:
// - Her IP adresi için sabit pencere ile istek sayısı takip edilir.
// - Pencere içinde maxAttempts aşılırsa istek reddedilir.
// - Başarılı login sonrası Reset() ile sayaç sıfırlanır.
// - Background goroutine süresi dolmuş bucket'ları temizler.
//
// Zaman juju/clock üzerinden okunur; testlerde testclock ile ilerletilir.
package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
)

// cleanupInterval, süresi dolmuş bucket'ların taranma aralığı.
const cleanupInterval = time.Minute

// bucket, bir IP adresi için istek sayacı ve pencere başlangıcı.
type bucket struct {
	count       int
	windowStart time.Time
}

// LoginRateLimiter, IP bazlı login rate limiting.
//
//	limiter := NewLoginRateLimiter(clock.WallClock, 5, 2*time.Minute)
//	if !limiter.Allow(ip) { return 429 }
//	// Başarılı login'de:
//	limiter.Reset(ip)
type LoginRateLimiter struct {
	clock       clock.Clock
	mu          sync.RWMutex
	buckets     map[string]*bucket
	maxAttempts int
	window      time.Duration
	stop        chan struct{}
	once        sync.Once
}

// NewLoginRateLimiter, yeni rate limiter oluşturur ve temizleme goroutine'ini başlatır.
// Stop ile durdurulur.
func NewLoginRateLimiter(clk clock.Clock, maxAttempts int, window time.Duration) *LoginRateLimiter {
	rl := &LoginRateLimiter{
		clock:       clk,
		buckets:     make(map[string]*bucket),
		maxAttempts: maxAttempts,
		window:      window,
		stop:        make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Allow, IP'nin login denemesine izin verilip verilmediğini döner.
// Her çağrı sayacı artırır; false → caller 429 dönmeli.
func (rl *LoginRateLimiter) Allow(ip string) bool {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[ip]
	if !exists || now.Sub(b.windowStart) >= rl.window {
		rl.buckets[ip] = &bucket{count: 1, windowStart: now}
		return true
	}

	b.count++
	return b.count <= rl.maxAttempts
}

// Reset, başarılı login sonrası IP sayacını sıfırlar.
func (rl *LoginRateLimiter) Reset(ip string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.buckets, ip)
}

// RetryAfterSeconds, pencere bitene kadar kalan süre (Retry-After header değeri).
func (rl *LoginRateLimiter) RetryAfterSeconds(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	b, exists := rl.buckets[ip]
	if !exists {
		return 0
	}

	remaining := rl.window - rl.clock.Now().Sub(b.windowStart)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Stop, temizleme goroutine'ini durdurur.
func (rl *LoginRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *LoginRateLimiter) cleanupLoop() {
	t := rl.clock.NewTimer(cleanupInterval)
	defer t.Stop()

	for {
		select {
		case <-t.Chan():
			rl.cleanup()
			t.Reset(cleanupInterval)
		case <-rl.stop:
			return
		}
	}
}

// cleanup, süresi dolmuş tüm bucket'ları siler.
func (rl *LoginRateLimiter) cleanup() {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, b := range rl.buckets {
		if now.Sub(b.windowStart) >= rl.window {
			delete(rl.buckets, ip)
		}
	}
}

// Len, takip edilen IP sayısı.
func (rl *LoginRateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.buckets)
}

// ExtractIP, HTTP request'ten client IP adresini çıkarır.
//
// Öncelik: X-Forwarded-For (ilk IP) → X-Real-IP → RemoteAddr.
// Feed server genelde bir reverse proxy arkasında çalışır.
func ExtractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// FormatRetryMessage, kalan süreyi okunabilir formata çevirir.
// Örn: 120 → "2 minute(s)", 45 → "45 second(s)"
func FormatRetryMessage(seconds int) string {
	if seconds >= 60 {
		return fmt.Sprintf("%d minute(s)", seconds/60)
	}
	return fmt.Sprintf("%d second(s)", seconds)
}
