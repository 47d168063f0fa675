package ws

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/akinalp/adminpulse/models"
)

type validatorFunc func(string) (*models.TokenClaims, error)

func (f validatorFunc) ValidateAccessToken(token string) (*models.TokenClaims, error) {
	return f(token)
}

// userToken, "user:<id>" biçimindeki token'ı kabul eder.
var userToken = validatorFunc(func(token string) (*models.TokenClaims, error) {
	id, ok := strings.CutPrefix(token, "user:")
	if !ok {
		return nil, errors.New("bad token")
	}
	return &models.TokenClaims{UserID: id}, nil
})

func newTestHub(c *qt.C) (*Hub, string) {
	hub := NewHub("orders", "admin_notifications")
	go hub.Run()

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, userToken).HandleConnection))
	c.Cleanup(srv.Close)
	c.Cleanup(hub.Shutdown)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(c *qt.C, url, token string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url+"?token="+token, nil)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { conn.Close() })
	return conn
}

func send(c *qt.C, conn *websocket.Conn, ev Event) {
	data, err := json.Marshal(ev)
	c.Assert(err, qt.IsNil)
	c.Assert(conn.WriteMessage(websocket.TextMessage, data), qt.IsNil)
}

func receive(c *qt.C, conn *websocket.Conn) Event {
	c.Assert(conn.SetReadDeadline(time.Now().Add(5*time.Second)), qt.IsNil)
	_, raw, err := conn.ReadMessage()
	c.Assert(err, qt.IsNil)
	var ev Event
	c.Assert(json.Unmarshal(raw, &ev), qt.IsNil)
	return ev
}

func subscribe(c *qt.C, conn *websocket.Conn, ref, table, filter string) Event {
	send(c, conn, Event{Op: OpSubscribe, Ref: ref, Data: SubscribeData{Table: table, Filter: filter}})
	return receive(c, conn)
}

func waitSubs(c *qt.C, hub *Hub, n int) {
	deadline := time.Now().Add(5 * time.Second)
	for hub.SubscriptionCount() != n {
		if time.Now().After(deadline) {
			c.Fatalf("want %d subscriptions, have %d", n, hub.SubscriptionCount())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestHandshakeRequiresToken(t *testing.T) {
	c := qt.New(t)
	_, url := newTestHub(c)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	c.Assert(err, qt.Equals, websocket.ErrBadHandshake)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=nope", nil)
	c.Assert(err, qt.Equals, websocket.ErrBadHandshake)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
}

func TestHeartbeatAck(t *testing.T) {
	c := qt.New(t)
	_, url := newTestHub(c)
	conn := dial(c, url, "user:admin-1")

	send(c, conn, Event{Op: OpHeartbeat})
	c.Assert(receive(c, conn).Op, qt.Equals, OpHeartbeatAck)
}

func TestSubscribeAndPublish(t *testing.T) {
	c := qt.New(t)
	hub, url := newTestHub(c)
	conn := dial(c, url, "user:admin-1")

	reply := subscribe(c, conn, "r1", "orders", "status=in.(Pending,Preparing)")
	c.Assert(reply.Op, qt.Equals, OpSubscribeOK)
	c.Assert(reply.Ref, qt.Equals, "r1")
	var ok SubscribeReply
	c.Assert(DecodeData(reply.Data, &ok), qt.IsNil)
	c.Assert(ok.Topic, qt.Equals, "orders:status=in.(Pending,Preparing)")
	waitSubs(c, hub, 1)
	c.Assert(hub.GetOnlineUserIDs(), qt.DeepEquals, []string{"admin-1"})

	hub.PublishChange(models.ChangeEvent{Table: "orders", Type: models.OpInsert, New: models.Row{"id": "o-skip", "status": "Delivered"}})
	hub.PublishChange(models.ChangeEvent{Table: "orders", Type: models.OpDelete, Old: models.Row{"id": "o-1", "status": "Pending"}})

	change := receive(c, conn)
	c.Assert(change.Op, qt.Equals, OpChange)
	c.Assert(change.Ref, qt.Equals, "r1")
	c.Assert(change.Seq, qt.Equals, int64(2))

	var ev models.ChangeEvent
	c.Assert(DecodeData(change.Data, &ev), qt.IsNil)
	c.Assert(ev.Type, qt.Equals, models.OpDelete)
	c.Assert(ev.EntityID(), qt.Equals, "o-1")
}

func TestSubscribeErrors(t *testing.T) {
	c := qt.New(t)
	_, url := newTestHub(c)
	conn := dial(c, url, "user:admin-1")

	tests := []struct {
		about  string
		ref    string
		table  string
		filter string
		err    string
	}{{
		about: "table not served",
		ref:   "r1",
		table: "invoices",
		err:   `unknown table "invoices"`,
	}, {
		about:  "malformed filter",
		ref:    "r2",
		table:  "orders",
		filter: "status",
		err:    `invalid filter "status": expected column=op.value`,
	}, {
		about: "first use of ref",
		ref:   "r3",
		table: "orders",
	}, {
		about: "ref reused",
		ref:   "r3",
		table: "admin_notifications",
		err:   "ref already in use",
	}}
	for i, test := range tests {
		c.Logf("test %d: %s", i, test.about)
		reply := subscribe(c, conn, test.ref, test.table, test.filter)
		c.Assert(reply.Ref, qt.Equals, test.ref)

		var body SubscribeReply
		c.Assert(DecodeData(reply.Data, &body), qt.IsNil)
		if test.err == "" {
			c.Assert(reply.Op, qt.Equals, OpSubscribeOK)
			continue
		}
		c.Assert(reply.Op, qt.Equals, OpSubscribeError)
		c.Assert(body.Error, qt.Equals, test.err)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := qt.New(t)
	hub, url := newTestHub(c)
	conn := dial(c, url, "user:admin-1")

	c.Assert(subscribe(c, conn, "r1", "orders", "").Op, qt.Equals, OpSubscribeOK)
	c.Assert(subscribe(c, conn, "r2", "admin_notifications", "admin_user_id=eq.admin-1").Op, qt.Equals, OpSubscribeOK)
	waitSubs(c, hub, 2)

	send(c, conn, Event{Op: OpUnsubscribe, Ref: "r1"})
	waitSubs(c, hub, 1)

	hub.PublishChange(models.ChangeEvent{Table: "orders", Type: models.OpInsert, New: models.Row{"id": "o-1"}})
	hub.PublishChange(models.ChangeEvent{Table: "admin_notifications", Type: models.OpInsert,
		New: models.Row{"id": "n-1", "admin_user_id": "admin-1"}})

	change := receive(c, conn)
	c.Assert(change.Ref, qt.Equals, "r2")
}

func TestDisconnectRemovesClient(t *testing.T) {
	c := qt.New(t)
	hub, url := newTestHub(c)

	first := dial(c, url, "user:admin-1")
	dial(c, url, "user:admin-1")
	send(c, first, Event{Op: OpHeartbeat})
	receive(c, first)

	deadline := time.Now().Add(5 * time.Second)
	for hub.ConnectionCount() != 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	c.Assert(hub.ConnectionCount(), qt.Equals, 2)

	first.Close()
	for hub.ConnectionCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	c.Assert(hub.ConnectionCount(), qt.Equals, 1)
}

func TestShutdownClosesConnections(t *testing.T) {
	c := qt.New(t)
	hub, url := newTestHub(c)
	conn := dial(c, url, "user:admin-1")
	send(c, conn, Event{Op: OpHeartbeat})
	receive(c, conn)

	hub.Shutdown()
	hub.Shutdown()

	c.Assert(conn.SetReadDeadline(time.Now().Add(5*time.Second)), qt.IsNil)
	_, _, err := conn.ReadMessage()
	c.Assert(websocket.IsCloseError(err, websocket.CloseNoStatusReceived), qt.IsTrue, qt.Commentf("err: %v", err))
	c.Assert(hub.ConnectionCount(), qt.Equals, 0)
}
