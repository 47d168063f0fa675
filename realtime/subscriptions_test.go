package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"

	"github.com/akinalp/adminpulse/models"
)

func discard(models.ChangeEvent) {}

func TestSetupOpensChannelsInOrder(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(testNow)
	feed := newFakeFeed()
	m := newSubscriptionManager(feed, clk, testConfig())
	verified := make(chan struct{}, 1)
	m.onVerified = func() { verified <- struct{}{} }

	errc := make(chan error, 1)
	go func() { errc <- m.setup(context.Background(), "admin-1", discard) }()

	waitFor(c, "first channel", func() bool { return len(feed.subscribeCalls()) == 1 })
	for i := 1; i < len(channelSpecs); i++ {
		c.Assert(clk.WaitAdvance(500*time.Millisecond, time.Second, 1), qt.IsNil)
		want := i + 1
		waitFor(c, "next channel", func() bool { return len(feed.subscribeCalls()) == want })
	}
	c.Assert(<-errc, qt.IsNil)

	calls := feed.subscribeCalls()
	c.Assert(feed.callNames(), qt.DeepEquals, []string{"notifications", "messages", "conversations", "orders", "appointments"})
	c.Assert(calls[0].Filter, qt.Not(qt.IsNil))
	c.Assert(calls[0].Filter.String(), qt.Equals, "admin_user_id=eq.admin-1")
	for _, sub := range calls[1:] {
		c.Assert(sub.Filter, qt.IsNil)
	}

	// Doğrulama çalışana kadar guard set kalır.
	c.Assert(m.inFlight(), qt.IsTrue)
	c.Assert(m.setup(context.Background(), "admin-1", discard), qt.ErrorIs, ErrSetupInProgress)
	c.Assert(feed.subscribeCalls(), qt.HasLen, 5)

	c.Assert(clk.WaitAdvance(3*time.Second, time.Second, 1), qt.IsNil)
	select {
	case <-verified:
	case <-time.After(5 * time.Second):
		c.Fatal("channels were not verified")
	}
	c.Assert(m.inFlight(), qt.IsFalse)

	infos := m.channels()
	c.Assert(infos, qt.HasLen, 5)
	for _, info := range infos {
		c.Assert(info.State, qt.Equals, models.ChannelOpen)
	}
	c.Assert(infos[0].Filter, qt.Equals, "admin_user_id=eq.admin-1")
}

func TestSetupFailureReleasesGuard(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.StaggerDelay = 0
	feed := newFakeFeed()
	boom := errors.New("channel rejected")
	feed.setFail("orders", boom)
	m := newSubscriptionManager(feed, testclock.NewClock(testNow), cfg)

	err := m.setup(context.Background(), "admin-1", discard)
	c.Assert(err, qt.ErrorIs, boom)
	c.Assert(m.inFlight(), qt.IsFalse)
	c.Assert(feed.openCount(), qt.Equals, 3)

	// Sonraki setup eski channel'ları kapatıp baştan açar.
	feed.setFail("orders", nil)
	c.Assert(m.setup(context.Background(), "admin-1", discard), qt.IsNil)
	c.Assert(feed.openCount(), qt.Equals, 5)
	c.Assert(feed.unsubscribeCount(), qt.Equals, 3)

	m.cleanup()
	c.Assert(feed.openCount(), qt.Equals, 0)
}

func TestSetupJoinTimeout(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.StaggerDelay = 0
	cfg.JoinTimeout = 20 * time.Millisecond
	feed := newFakeFeed()
	feed.setBlock("messages")
	m := newSubscriptionManager(feed, testclock.NewClock(testNow), cfg)

	err := m.setup(context.Background(), "admin-1", discard)
	c.Assert(err, qt.ErrorIs, ErrChannelTimeout)
	c.Assert(m.inFlight(), qt.IsFalse)
}

func TestCleanupDuringStagger(t *testing.T) {
	c := qt.New(t)
	feed := newFakeFeed()
	m := newSubscriptionManager(feed, testclock.NewClock(testNow), testConfig())

	errc := make(chan error, 1)
	go func() { errc <- m.setup(context.Background(), "admin-1", discard) }()
	waitFor(c, "first channel", func() bool { return len(feed.subscribeCalls()) == 1 })

	m.cleanup()
	c.Assert(<-errc, qt.ErrorIs, ErrTornDown)
	waitFor(c, "channels closed", func() bool { return feed.openCount() == 0 })
	c.Assert(feed.subscribeCalls(), qt.HasLen, 1)
	c.Assert(m.inFlight(), qt.IsFalse)
	c.Assert(m.channels(), qt.HasLen, 0)

	// Tekrar tekrar çağrılabilir.
	m.cleanup()
}

func TestVerifyDetectsChannelLostDuringSetup(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.StaggerDelay = 0
	clk := testclock.NewClock(testNow)
	feed := newFakeFeed()
	m := newSubscriptionManager(feed, clk, cfg)
	degraded := make(chan error, 2)
	m.onDegraded = func(err error) { degraded <- err }

	c.Assert(m.setup(context.Background(), "admin-1", discard), qt.IsNil)
	feed.drop("messages", nil)
	c.Assert(degraded, qt.HasLen, 0)

	c.Assert(clk.WaitAdvance(3*time.Second, time.Second, 1), qt.IsNil)
	select {
	case err := <-degraded:
		c.Assert(err, qt.ErrorIs, ErrNotConnected)
		c.Assert(err, qt.ErrorMatches, `.*messages.*`)
	case <-time.After(5 * time.Second):
		c.Fatal("verification did not degrade")
	}
}

func TestOpenChannelErrorDegradesImmediately(t *testing.T) {
	c := qt.New(t)
	cfg := testConfig()
	cfg.StaggerDelay = 0
	clk := testclock.NewClock(testNow)
	feed := newFakeFeed()
	m := newSubscriptionManager(feed, clk, cfg)
	verified := make(chan struct{}, 1)
	m.onVerified = func() { verified <- struct{}{} }
	var got []error
	m.onDegraded = func(err error) { got = append(got, err) }

	c.Assert(m.setup(context.Background(), "admin-1", discard), qt.IsNil)
	c.Assert(clk.WaitAdvance(3*time.Second, time.Second, 1), qt.IsNil)
	<-verified

	feed.drop("orders", errors.New("socket closed"))
	c.Assert(got, qt.HasLen, 1)
	c.Assert(got[0], qt.ErrorMatches, "orders: socket closed")

	// Zaten hatalı channel'dan gelen ikinci bildirim tekrar tetiklemez.
	feed.drop("orders", nil)
	c.Assert(got, qt.HasLen, 1)

	feed.drop("appointments", nil)
	c.Assert(got, qt.HasLen, 2)
	c.Assert(got[1], qt.ErrorIs, ErrChannelError)

	// Cleanup sonrası eski channel'ların bildirimleri yok sayılır.
	m.cleanup()
	feed.drop("notifications", nil)
	c.Assert(got, qt.HasLen, 2)
}

func TestConcurrentSetupOpensOneSet(t *testing.T) {
	c := qt.New(t)
	clk := testclock.NewClock(testNow)
	feed := newFakeFeed()
	cfg := testConfig()
	cfg.StaggerDelay = 0
	m := newSubscriptionManager(feed, clk, cfg)
	c.Cleanup(m.cleanup)

	gate := feed.setGate("notifications")
	errc := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errc <- m.setup(context.Background(), "admin-1", discard) }()
	}

	// İlk join beklerken ikinci kurulum guard'a takılır.
	select {
	case err := <-errc:
		c.Assert(err, qt.ErrorIs, ErrSetupInProgress)
	case <-time.After(5 * time.Second):
		c.Fatal("second setup was not rejected")
	}
	waitFor(c, "first join", func() bool { return len(feed.subscribeCalls()) == 1 })

	close(gate)
	select {
	case err := <-errc:
		c.Assert(err, qt.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("setup did not complete")
	}
	c.Assert(feed.subscribeCalls(), qt.HasLen, 5)
	c.Assert(feed.openCount(), qt.Equals, 5)
}
