package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/akinalp/adminpulse/models"
)

var testNow = time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.HealthInterval = 0
	return cfg
}

// waitFor, AfterFunc callback'leri ayrı goroutine'de çalıştığı için
// koşulun gerçek zamanlı bir süre içinde sağlanmasını bekler.
func waitFor(c *qt.C, what string, cond func() bool) {
	c.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			c.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// ─── Fake feed ───

type fakeChannel struct {
	topic   string
	sub     models.Subscription
	onEvent func(models.ChangeEvent)
}

func (c *fakeChannel) Topic() string { return c.topic }

type fakeFeed struct {
	mu           sync.Mutex
	n            int
	open         map[*fakeChannel]bool
	all          []*fakeChannel
	calls        []models.Subscription
	unsubscribed int
	fail         map[string]error
	block        map[string]bool
	gate         map[string]chan struct{}
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		open:  make(map[*fakeChannel]bool),
		fail:  make(map[string]error),
		block: make(map[string]bool),
		gate:  make(map[string]chan struct{}),
	}
}

func (f *fakeFeed) Subscribe(ctx context.Context, sub models.Subscription, onEvent func(models.ChangeEvent)) (Channel, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sub)
	err := f.fail[sub.Name]
	block := f.block[sub.Name]
	gate := f.gate[sub.Name]
	delete(f.gate, sub.Name)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	ch := &fakeChannel{topic: fmt.Sprintf("%s:%d", sub.Table, f.n), sub: sub, onEvent: onEvent}
	f.open[ch] = true
	f.all = append(f.all, ch)
	return ch, nil
}

func (f *fakeFeed) Unsubscribe(ch Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fc := ch.(*fakeChannel)
	if f.open[fc] {
		delete(f.open, fc)
		f.unsubscribed++
	}
	return nil
}

func (f *fakeFeed) setFail(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, name)
		return
	}
	f.fail[name] = err
}

func (f *fakeFeed) setBlock(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[name] = true
}

// setGate, name için bir sonraki Subscribe çağrısını dönen channel kapanana kadar bekletir.
func (f *fakeFeed) setGate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gate[name] = g
	return g
}

func (f *fakeFeed) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func (f *fakeFeed) unsubscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

func (f *fakeFeed) subscribeCalls() []models.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Subscription(nil), f.calls...)
}

func (f *fakeFeed) callNames() []string {
	var names []string
	for _, sub := range f.subscribeCalls() {
		names = append(names, sub.Name)
	}
	return names
}

// channel, name ile açılmış en son channel (kapalı olsa bile).
func (f *fakeFeed) channel(name string) *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.all) - 1; i >= 0; i-- {
		if f.all[i].sub.Name == name {
			return f.all[i]
		}
	}
	return nil
}

// emit, event'i tablosu ve filtresi eşleşen açık channel'lara teslim eder.
func (f *fakeFeed) emit(ev models.ChangeEvent) {
	f.mu.Lock()
	var targets []*fakeChannel
	for ch := range f.open {
		if ch.sub.Table != ev.Table {
			continue
		}
		if ch.sub.Filter != nil && !ch.sub.Filter.Match(ev.Payload()) {
			continue
		}
		targets = append(targets, ch)
	}
	f.mu.Unlock()

	for _, ch := range targets {
		ch.onEvent(ev)
	}
}

// drop, name'li açık channel'ı hata durumuna düşürür.
func (f *fakeFeed) drop(name string, err error) {
	ch := f.channel(name)
	if ch != nil && ch.sub.OnStatus != nil {
		ch.sub.OnStatus(models.ChannelError, err)
	}
}

// ─── Fake querier ───

type fakeQuerier struct {
	mu      sync.Mutex
	rows    map[string][]models.Row
	counts  map[string]int
	err     error
	queries []models.Query
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		rows:   make(map[string][]models.Row),
		counts: make(map[string]int),
	}
}

func (q *fakeQuerier) Query(_ context.Context, query models.Query) ([]models.Row, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, query)
	if q.err != nil {
		return nil, 0, q.err
	}
	if query.CountOnly {
		return nil, q.counts[query.Table], nil
	}
	rows := make([]models.Row, 0, len(q.rows[query.Table]))
	for _, r := range q.rows[query.Table] {
		rows = append(rows, r.Clone())
	}
	return rows, len(rows), nil
}

func (q *fakeQuerier) setRows(table string, rows ...models.Row) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rows[table] = rows
}

func (q *fakeQuerier) setCount(table string, n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.counts[table] = n
}

func (q *fakeQuerier) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}

// queryCount, table'a yapılan (countOnly türündeki) sorgu sayısı.
func (q *fakeQuerier) queryCount(table string, countOnly bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, query := range q.queries {
		if query.Table == table && query.CountOnly == countOnly {
			n++
		}
	}
	return n
}
