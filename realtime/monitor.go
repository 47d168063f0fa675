package realtime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
)

// healthMonitor, backing store'a periyodik ucuz bir sorgu atar.
// Sorgu başarısız olursa onFailure çağrılır; servis bunu backoff'a bağlar:
// channel'lar açık görünse bile arka uç erişilemezse yeniden kurulum denenir.
//
// services/metrics_collector'daki ticker + stop channel worker yapısı.
type healthMonitor struct {
	querier   Querier
	clock     clock.Clock
	interval  time.Duration
	onFailure func(err error)

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

func newHealthMonitor(q Querier, clk clock.Clock, interval time.Duration) *healthMonitor {
	return &healthMonitor{querier: q, clock: clk, interval: interval}
}

// start, izleme goroutine'ini başlatır. Zaten çalışıyorsa, interval 0 ise
// veya ctx iptal edilmişse no-op.
func (h *healthMonitor) start(ctx context.Context) {
	if h.interval <= 0 || ctx.Err() != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopCh != nil {
		return
	}
	h.stopCh = make(chan struct{})
	h.done = make(chan struct{})
	go h.loop(ctx, h.stopCh, h.done)
}

func (h *healthMonitor) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)
	t := h.clock.NewTimer(h.interval)
	defer t.Stop()
	for {
		select {
		case <-t.Chan():
			if err := h.check(ctx); err != nil {
				log.Printf("[realtime] health check failed: %v", err)
				if h.onFailure != nil {
					h.onFailure(err)
				}
			}
			t.Reset(h.interval)
		case <-stop:
			return
		case <-ctx.Done():
			// stop() çağrılmadan çıkıldı; kaydı temizle ki sonraki start yeni loop açsın.
			h.mu.Lock()
			if h.stopCh == stop {
				h.stopCh, h.done = nil, nil
			}
			h.mu.Unlock()
			return
		}
	}
}

// check, admin_users tablosundan tek satır ister.
func (h *healthMonitor) check(ctx context.Context) error {
	_, _, err := h.querier.Query(ctx, models.Query{Table: TableAdminUsers, Limit: 1})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHealthCheck, err)
	}
	return nil
}

// running, izleme goroutine'inin kayıtlı olup olmadığını döner.
func (h *healthMonitor) running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stopCh != nil
}

// stop, goroutine'i durdurur ve bitmesini bekler.
func (h *healthMonitor) stop() {
	h.mu.Lock()
	stopCh, done := h.stopCh, h.done
	h.stopCh, h.done = nil, nil
	h.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}
