package dashboard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	json "github.com/goccy/go-json"

	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
	"github.com/akinalp/adminpulse/realtime"
)

// ─── Fakes ───

type fakeChannel struct {
	sub     models.Subscription
	onEvent func(models.ChangeEvent)
}

func (c *fakeChannel) Topic() string { return c.sub.Table }

// fakeFeed, her subscribe'ı anında açar.
type fakeFeed struct {
	mu   sync.Mutex
	open map[*fakeChannel]bool
	down bool
}

func (f *fakeFeed) Subscribe(ctx context.Context, sub models.Subscription, onEvent func(models.ChangeEvent)) (realtime.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, fmt.Errorf("%w: feed unreachable", realtime.ErrChannelError)
	}
	ch := &fakeChannel{sub: sub, onEvent: onEvent}
	f.open[ch] = true
	return ch, nil
}

func (f *fakeFeed) Unsubscribe(ch realtime.Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.open, ch.(*fakeChannel))
	return nil
}

func (f *fakeFeed) emit(ev models.ChangeEvent) {
	f.mu.Lock()
	var targets []*fakeChannel
	for ch := range f.open {
		if ch.sub.Table == ev.Table && (ch.sub.Filter == nil || ch.sub.Filter.Match(ev.Payload())) {
			targets = append(targets, ch)
		}
	}
	f.mu.Unlock()
	for _, ch := range targets {
		ch.onEvent(ev)
	}
}

// fakeQuerier, boş tablolar döner; fail doluysa her sorgu hata verir.
type fakeQuerier struct {
	mu   sync.Mutex
	fail error
}

func (q *fakeQuerier) Query(ctx context.Context, query models.Query) ([]models.Row, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return nil, 0, q.fail
	}
	return []models.Row{}, 0, nil
}

type tokenValidator map[string]string

func (v tokenValidator) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	id, ok := v[token]
	if !ok {
		return nil, fmt.Errorf("%w: invalid token", pkg.ErrUnauthorized)
	}
	return &models.TokenClaims{UserID: id}, nil
}

// ─── Fixture ───

type fixture struct {
	feed    *fakeFeed
	querier *fakeQuerier
	rt      *realtime.Service
	srv     *httptest.Server
}

func newFixture(c *qt.C) *fixture {
	cfg := realtime.DefaultConfig()
	cfg.StaggerDelay = 0
	cfg.VerifyDelay = 10 * time.Millisecond
	cfg.BackoffBase = 10 * time.Millisecond
	cfg.BackoffMax = 50 * time.Millisecond
	cfg.HealthInterval = 0

	f := &fixture{
		feed:    &fakeFeed{open: make(map[*fakeChannel]bool)},
		querier: &fakeQuerier{},
	}
	rt, err := realtime.NewService(f.feed, f.querier, cfg)
	c.Assert(err, qt.IsNil)
	c.Cleanup(rt.Close)
	f.rt = rt

	f.srv = httptest.NewServer(New(rt, tokenValidator{"good": "admin-1", "other": "admin-2"}, Options{}))
	c.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(c *qt.C, method, path, body string, header map[string]string) (*http.Response, map[string]any) {
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	c.Assert(err, qt.IsNil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()

	var out map[string]any
	c.Assert(json.NewDecoder(resp.Body).Decode(&out), qt.IsNil)
	return resp, out
}

// startSession, session'ı açar ve bağlantının doğrulanmasını bekler.
func (f *fixture) startSession(c *qt.C, token string) {
	resp, _ := f.do(c, http.MethodPut, "/api/session", "", map[string]string{"Authorization": "Bearer " + token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusAccepted)
	waitFor(c, "connected session", f.rt.IsConnected)
}

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

func data(c *qt.C, body map[string]any) map[string]any {
	c.Assert(body["success"], qt.Equals, true, qt.Commentf("body: %v", body))
	return body["data"].(map[string]any)
}

// ─── Tests ───

func TestHealthIdleWithoutSession(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	resp, body := f.do(c, http.MethodGet, "/api/health", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(data(c, body)["status"], qt.Equals, "idle")
}

func TestStartSessionRejectsBadTokens(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	resp, body := f.do(c, http.MethodPut, "/api/session", `{}`, nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	c.Assert(body["error"], qt.Equals, "token required")

	resp, _ = f.do(c, http.MethodPut, "/api/session", `{"token":"forged"}`, nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	c.Assert(f.rt.Identity(), qt.Equals, "")
}

func TestSessionLifecycle(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	resp, body := f.do(c, http.MethodPut, "/api/session", `{"token":"good"}`, nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusAccepted)
	c.Assert(data(c, body)["identity"], qt.Equals, "admin-1")
	waitFor(c, "connected session", f.rt.IsConnected)

	resp, body = f.do(c, http.MethodGet, "/api/health", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(data(c, body)["status"], qt.Equals, "ok")

	resp, body = f.do(c, http.MethodGet, "/api/realtime/state", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	state := data(c, body)
	c.Assert(state["identity"], qt.Equals, "admin-1")
	c.Assert(state["channels"], qt.HasLen, 5)

	resp, _ = f.do(c, http.MethodDelete, "/api/session", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(f.rt.Identity(), qt.Equals, "")
	c.Assert(f.rt.Channels(), qt.HasLen, 0)

	_, body = f.do(c, http.MethodGet, "/api/health", "", nil)
	c.Assert(data(c, body)["status"], qt.Equals, "idle")
}

func TestSwitchingIdentityReplacesSession(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.startSession(c, "good")

	f.do(c, http.MethodPut, "/api/session", `{"token":"other"}`, nil)
	waitFor(c, "second admin", func() bool {
		return f.rt.Identity() == "admin-2" && f.rt.IsConnected()
	})
	c.Assert(f.rt.Store().Snapshot().Identity, qt.Equals, "admin-2")
}

func TestRefresh(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)

	// Session yokken no-op.
	resp, _ := f.do(c, http.MethodPost, "/api/realtime/refresh", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	f.startSession(c, "good")
	resp, body := f.do(c, http.MethodPost, "/api/realtime/refresh", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(data(c, body)["unread_notifications"], qt.Equals, float64(0))

	f.querier.mu.Lock()
	f.querier.fail = errors.New("connection refused")
	f.querier.mu.Unlock()

	resp, body = f.do(c, http.MethodPost, "/api/realtime/refresh", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusServiceUnavailable)
	c.Assert(body["error"], qt.Matches, "(?s)service unavailable: refresh failed: .*connection refused.*")
}

func TestHealthDegradedWhenChannelDrops(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.startSession(c, "good")

	f.feed.mu.Lock()
	f.feed.down = true
	var ch *fakeChannel
	for open := range f.feed.open {
		if open.sub.Name == "orders" {
			ch = open
		}
	}
	f.feed.mu.Unlock()
	c.Assert(ch, qt.IsNotNil)
	ch.sub.OnStatus(models.ChannelError, errors.New("socket closed"))

	waitFor(c, "degraded connection", func() bool { return !f.rt.IsConnected() })
	resp, body := f.do(c, http.MethodGet, "/api/health", "", nil)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusServiceUnavailable)
	health := data(c, body)
	c.Assert(health["status"], qt.Equals, "degraded")
	c.Assert(health["connection"].(map[string]any)["is_connected"], qt.Equals, false)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(c *qt.C, r *bufio.Reader) sseEvent {
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		c.Assert(err, qt.IsNil)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.name != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	c := qt.New(t)
	f := newFixture(c)
	f.startSession(c, "good")

	ctx, cancel := context.WithCancel(context.Background())
	c.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/api/realtime/events", nil)
	c.Assert(err, qt.IsNil)
	resp, err := http.DefaultClient.Do(req)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.Header.Get("Content-Type"), qt.Equals, "text/event-stream")

	r := bufio.NewReader(resp.Body)
	first := readEvent(c, r)
	c.Assert(first.name, qt.Equals, "snapshot")
	var snap models.Snapshot
	c.Assert(json.Unmarshal([]byte(first.data), &snap), qt.IsNil)
	c.Assert(snap.Identity, qt.Equals, "admin-1")

	f.feed.emit(models.ChangeEvent{
		Table: models.TableNotifications,
		Type:  models.OpInsert,
		New: models.Row{
			"id": "n-1", "admin_user_id": "admin-1", "title": "Stok azaldı",
			"priority": "low", "is_read": false, "created_at": "2026-01-31T12:00:00.000000Z",
		},
		CommitTimestamp: time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC),
	})

	// Tek event birden fazla bildirim üretir; counters gelene kadar oku.
	for {
		ev := readEvent(c, r)
		if ev.name != string(models.TopicCounters) {
			continue
		}
		var payload eventPayload
		c.Assert(json.Unmarshal([]byte(ev.data), &payload), qt.IsNil)
		c.Assert(payload.Counters.UnreadNotifications, qt.Equals, 1)
		c.Assert(payload.Connection.IsConnected, qt.IsTrue)
		c.Assert(payload.Seq > 0, qt.IsTrue)
		break
	}
}
