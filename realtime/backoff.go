package realtime

import (
	"log"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/akinalp/adminpulse/models"
)

// backoffController, bağlantı bozulduğunda yeniden bağlanmayı zamanlar.
//
//	connected → degraded → reconnecting → connected | degraded
//
// Gecikme min(base * 2^retryCount, max): 1s, 2s, 4s, ... 30s, 30s, ...
// Deneme sayısında üst sınır yok. Başarılı doğrulama sayacı sıfırlar.
//
// Debounce: zaten kurulu bir retry timer'ı varken gelen Degrade çağrısı
// yeni timer kurmaz: kanal hataları, doğrulama ve health check aynı anda
// tetiklese bile tek bir yeniden bağlanma olur.
type backoffController struct {
	clock clock.Clock
	base  time.Duration
	max   time.Duration

	// retry, timer dolduğunda çağrılır (yeni goroutine'de).
	retry func()
	// onChange, state veya retryCount değiştiğinde çağrılır (lock dışında).
	onChange func(state models.ConnectionState, retryCount int)

	mu         sync.Mutex
	state      models.ConnectionState
	retryCount int
	timer      clock.Timer
	// epoch, stop ile artar; eski timer'ın geç tetiklenmesi etkisiz kalır.
	epoch uint64
}

func newBackoffController(clk clock.Clock, base, max time.Duration) *backoffController {
	return &backoffController{
		clock: clk,
		base:  base,
		max:   max,
		state: models.ConnIdle,
	}
}

// Delay, n. deneme için bekleme süresi.
func (b *backoffController) Delay(n int) time.Duration {
	d := b.base
	for i := 0; i < n; i++ {
		d *= 2
		if d >= b.max {
			return b.max
		}
	}
	if d > b.max {
		return b.max
	}
	return d
}

// Connecting, ilk kurulumun başladığını işaretler.
func (b *backoffController) Connecting() {
	b.mu.Lock()
	b.state = models.ConnConnecting
	state, n := b.state, b.retryCount
	b.mu.Unlock()
	b.changed(state, n)
}

// Connected, başarılı doğrulama: sayaç sıfırlanır, bekleyen retry iptal edilir.
func (b *backoffController) Connected() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.retryCount = 0
	b.state = models.ConnConnected
	state, n := b.state, b.retryCount
	b.mu.Unlock()
	b.changed(state, n)
}

// Degrade, bağlantıyı bozuk işaretler ve retry zamanlar.
// Zaten bekleyen bir retry varsa hiçbir şey yapmaz ve false döner.
func (b *backoffController) Degrade(reason error) bool {
	b.mu.Lock()
	if b.timer != nil {
		b.mu.Unlock()
		return false
	}
	delay := b.Delay(b.retryCount)
	b.retryCount++
	b.state = models.ConnDegraded
	epoch := b.epoch
	b.timer = b.clock.AfterFunc(delay, func() { b.fire(epoch) })
	state, n := b.state, b.retryCount
	b.mu.Unlock()

	log.Printf("[realtime] connection degraded (%v), retry #%d in %s", reason, n, delay)
	b.changed(state, n)
	return true
}

func (b *backoffController) fire(epoch uint64) {
	b.mu.Lock()
	if epoch != b.epoch || b.timer == nil {
		b.mu.Unlock()
		return
	}
	b.timer = nil
	b.state = models.ConnReconnecting
	state, n := b.state, b.retryCount
	retry := b.retry
	b.mu.Unlock()

	b.changed(state, n)
	if retry != nil {
		retry()
	}
}

// Pending, bekleyen bir retry timer'ı var mı.
func (b *backoffController) Pending() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timer != nil
}

// RetryCount, son başarılı bağlantıdan beri zamanlanan retry sayısı.
func (b *backoffController) RetryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.retryCount
}

// State, controller'ın durumu.
func (b *backoffController) State() models.ConnectionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stop, bekleyen timer'ı iptal eder ve controller'ı başlangıç durumuna döndürür.
func (b *backoffController) Stop() {
	b.mu.Lock()
	b.epoch++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.retryCount = 0
	b.state = models.ConnIdle
	b.mu.Unlock()
}

func (b *backoffController) changed(state models.ConnectionState, n int) {
	if b.onChange != nil {
		b.onChange(state, n)
	}
}
