package models

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestParseOperation(t *testing.T) {
	c := qt.New(t)
	for in, want := range map[string]Operation{"insert": OpInsert, " UPDATE ": OpUpdate, "Delete": OpDelete} {
		op, ok := ParseOperation(in)
		c.Assert(ok, qt.IsTrue)
		c.Assert(op, qt.Equals, want)
	}
	_, ok := ParseOperation("TRUNCATE")
	c.Assert(ok, qt.IsFalse)
}

func TestChangeEventPayload(t *testing.T) {
	c := qt.New(t)
	ins := ChangeEvent{Type: OpInsert, New: Row{"id": "n-1"}}
	del := ChangeEvent{Type: OpDelete, Old: Row{"id": "n-2"}}
	upd := ChangeEvent{Type: OpUpdate, New: Row{"id": "n-3", "is_read": true}, Old: Row{"id": "n-3"}}

	c.Assert(ins.EntityID(), qt.Equals, "n-1")
	c.Assert(ins.Payload(), qt.DeepEquals, Row{"id": "n-1"})
	c.Assert(del.EntityID(), qt.Equals, "n-2")
	c.Assert(del.Payload(), qt.DeepEquals, Row{"id": "n-2"})
	c.Assert(upd.Payload().Bool("is_read"), qt.IsTrue)
	c.Assert(ChangeEvent{Type: OpDelete}.EntityID(), qt.Equals, "")
}

func TestDedupeKey(t *testing.T) {
	c := qt.New(t)
	ts := time.Date(2026, 1, 31, 15, 0, 0, 123, time.FixedZone("TRT", 3*3600))
	ev := ChangeEvent{Table: "orders", Type: OpUpdate, New: Row{"id": "o-1"}, CommitTimestamp: ts}

	c.Assert(ev.DedupeKey(), qt.Equals, "orders|o-1|UPDATE|2026-01-31T12:00:00.000000123Z")

	same := ev
	same.CommitTimestamp = ts.UTC()
	c.Assert(same.DedupeKey(), qt.Equals, ev.DedupeKey())

	later := ev
	later.CommitTimestamp = ts.Add(time.Millisecond)
	c.Assert(later.DedupeKey(), qt.Not(qt.Equals), ev.DedupeKey())
}
