package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/juju/clock/testclock"
)

var epoch = time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)

func newLimiter(c *qt.C) (*LoginRateLimiter, *testclock.Clock) {
	clk := testclock.NewClock(epoch)
	rl := NewLoginRateLimiter(clk, 3, 2*time.Minute)
	c.Cleanup(rl.Stop)
	return rl, clk
}

func TestAllowWithinWindow(t *testing.T) {
	c := qt.New(t)
	rl, clk := newLimiter(c)

	for i := 0; i < 3; i++ {
		c.Assert(rl.Allow("10.0.0.1"), qt.IsTrue, qt.Commentf("attempt %d", i+1))
	}
	c.Assert(rl.Allow("10.0.0.1"), qt.IsFalse)
	c.Assert(rl.Allow("10.0.0.2"), qt.IsTrue)

	clk.Advance(30 * time.Second)
	c.Assert(rl.RetryAfterSeconds("10.0.0.1"), qt.Equals, 91)

	clk.Advance(90 * time.Second)
	c.Assert(rl.RetryAfterSeconds("10.0.0.1"), qt.Equals, 0)
	c.Assert(rl.Allow("10.0.0.1"), qt.IsTrue)
}

func TestReset(t *testing.T) {
	c := qt.New(t)
	rl, _ := newLimiter(c)

	for i := 0; i < 4; i++ {
		rl.Allow("10.0.0.1")
	}
	c.Assert(rl.Allow("10.0.0.1"), qt.IsFalse)
	rl.Reset("10.0.0.1")
	c.Assert(rl.Allow("10.0.0.1"), qt.IsTrue)
}

func TestCleanupDropsExpiredBuckets(t *testing.T) {
	c := qt.New(t)
	rl, clk := newLimiter(c)

	rl.Allow("10.0.0.1")
	c.Assert(clk.WaitAdvance(time.Minute, time.Second, 1), qt.IsNil)
	rl.Allow("10.0.0.2")
	c.Assert(clk.WaitAdvance(time.Minute, time.Second, 1), qt.IsNil)

	deadline := time.Now().Add(5 * time.Second)
	for rl.Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Assert(rl.Len(), qt.Equals, 1)
	c.Assert(rl.RetryAfterSeconds("10.0.0.2"), qt.Equals, 61)
}

func TestExtractIP(t *testing.T) {
	c := qt.New(t)

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "192.0.2.7:52311"
	c.Assert(ExtractIP(r), qt.Equals, "192.0.2.7")

	r.Header.Set("X-Real-IP", "198.51.100.4")
	c.Assert(ExtractIP(r), qt.Equals, "198.51.100.4")

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	c.Assert(ExtractIP(r), qt.Equals, "203.0.113.9")
}

func TestFormatRetryMessage(t *testing.T) {
	c := qt.New(t)
	c.Assert(FormatRetryMessage(45), qt.Equals, "45 second(s)")
	c.Assert(FormatRetryMessage(150), qt.Equals, "2 minute(s)")
}
