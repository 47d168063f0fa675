package realtime

import (
	"fmt"
	"time"
)

// Config, realtime servisinin zamanlama ve boyut ayarları.
// Sıfır değerli alanlar DefaultConfig ile doldurulmaz: NewService Validate çağırır,
// eksik ayar erken ve açıkça hata verir.
type Config struct {
	// StaggerDelay: ardışık channel açılışları arasındaki bekleme.
	StaggerDelay time.Duration
	// VerifyDelay: setup bittikten sonra bağlantı kontrolüne kadar geçen süre.
	VerifyDelay time.Duration
	// BackoffBase / BackoffMax: yeniden bağlanma gecikmesi min(base*2^n, max).
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// JoinTimeout: tek bir channel'ın açılması için beklenen en uzun süre.
	JoinTimeout time.Duration
	// HealthInterval: backing store'a yapılan periyodik sağlık sorgusu aralığı. 0 → kapalı.
	HealthInterval time.Duration
	// DedupeTTL: tekrar eden change event'lerin hatırlanma süresi.
	DedupeTTL time.Duration
	// PageSize: her takip edilen koleksiyonda tutulan en fazla kayıt.
	PageSize int
}

// DefaultConfig, production varsayılanları.
func DefaultConfig() Config {
	return Config{
		StaggerDelay:   500 * time.Millisecond,
		VerifyDelay:    3 * time.Second,
		BackoffBase:    time.Second,
		BackoffMax:     30 * time.Second,
		JoinTimeout:    10 * time.Second,
		HealthInterval: 60 * time.Second,
		DedupeTTL:      5 * time.Minute,
		PageSize:       50,
	}
}

// Validate, ayarların kullanılabilir olduğunu kontrol eder.
func (c Config) Validate() error {
	switch {
	case c.StaggerDelay < 0:
		return fmt.Errorf("stagger delay cannot be negative")
	case c.VerifyDelay <= 0:
		return fmt.Errorf("verify delay must be positive")
	case c.BackoffBase <= 0:
		return fmt.Errorf("backoff base must be positive")
	case c.BackoffMax < c.BackoffBase:
		return fmt.Errorf("backoff max (%s) must be >= base (%s)", c.BackoffMax, c.BackoffBase)
	case c.JoinTimeout <= 0:
		return fmt.Errorf("join timeout must be positive")
	case c.HealthInterval < 0:
		return fmt.Errorf("health interval cannot be negative")
	case c.DedupeTTL <= 0:
		return fmt.Errorf("dedupe ttl must be positive")
	case c.PageSize <= 0:
		return fmt.Errorf("page size must be positive")
	}
	return nil
}
