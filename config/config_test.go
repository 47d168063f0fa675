package config

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	c.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Server.Addr(), qt.Equals, "0.0.0.0:9090")
	c.Assert(cfg.Dashboard.Addr(), qt.Equals, "127.0.0.1:9091")
	c.Assert(cfg.Feed.Driver, qt.Equals, FeedSocket)
	c.Assert(cfg.PubSub.Enabled(), qt.IsFalse)
	c.Assert(cfg.JWT.AccessTokenTTL(), qt.Equals, time.Hour)

	c.Assert(cfg.Realtime.StaggerDelay, qt.Equals, 500*time.Millisecond)
	c.Assert(cfg.Realtime.VerifyDelay, qt.Equals, 3*time.Second)
	c.Assert(cfg.Realtime.BackoffBase, qt.Equals, time.Second)
	c.Assert(cfg.Realtime.BackoffMax, qt.Equals, 30*time.Second)
	c.Assert(cfg.Realtime.HealthInterval, qt.Equals, time.Minute)
	c.Assert(cfg.Realtime.PageSize, qt.Equals, 50)
}

func TestLoadOverrides(t *testing.T) {
	c := qt.New(t)
	c.Setenv("JWT_SECRET", "s3cret")
	c.Setenv("REALTIME_STAGGER_MS", "100")
	c.Setenv("REALTIME_BACKOFF_MAX_MS", "5000")
	c.Setenv("REALTIME_HEALTH_INTERVAL_S", "0")
	c.Setenv("FEED_DRIVER", "pubsub")
	c.Setenv("PUBSUB_PROJECT_ID", "petshop")

	cfg, err := Load()
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Realtime.StaggerDelay, qt.Equals, 100*time.Millisecond)
	c.Assert(cfg.Realtime.BackoffMax, qt.Equals, 5*time.Second)
	c.Assert(cfg.Realtime.HealthInterval, qt.Equals, time.Duration(0))
	c.Assert(cfg.PubSub.Enabled(), qt.IsTrue)
	c.Assert(cfg.PubSub.SubscriptionPrefix, qt.Equals, "adminpulse")
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		about string
		env   map[string]string
		err   string
	}{{
		about: "missing secret",
		env:   map[string]string{"JWT_SECRET": ""},
		err:   "JWT_SECRET environment variable is required",
	}, {
		about: "bad integer",
		env:   map[string]string{"SERVER_PORT": "http"},
		err:   `invalid SERVER_PORT: .*`,
	}, {
		about: "unknown feed driver",
		env:   map[string]string{"FEED_DRIVER": "kafka"},
		err:   `invalid FEED_DRIVER "kafka": expected socket or pubsub`,
	}, {
		about: "pubsub without project",
		env:   map[string]string{"FEED_DRIVER": "pubsub"},
		err:   "FEED_DRIVER=pubsub requires PUBSUB_PROJECT_ID",
	}, {
		about: "backoff max below base",
		env:   map[string]string{"REALTIME_BACKOFF_MAX_MS": "10"},
		err:   `invalid realtime config: backoff max \(10ms\) must be >= base \(1s\)`,
	}}
	for _, test := range tests {
		t.Run(test.about, func(t *testing.T) {
			c := qt.New(t)
			c.Setenv("JWT_SECRET", "s3cret")
			c.Setenv("PUBSUB_PROJECT_ID", "")
			for k, v := range test.env {
				c.Setenv(k, v)
			}
			_, err := Load()
			c.Assert(err, qt.ErrorMatches, test.err)
		})
	}
}
