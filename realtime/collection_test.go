package realtime

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/akinalp/adminpulse/models"
)

func ids(rows []models.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID())
	}
	return out
}

func row(id string) models.Row {
	return models.Row{"id": id}
}

func TestCollectionPrepend(t *testing.T) {
	c := qt.New(t)
	col := NewCollection(3, models.Row.ID)

	c.Assert(col.Prepend(row("a")), qt.IsTrue)
	c.Assert(col.Prepend(row("b")), qt.IsTrue)
	c.Assert(col.Prepend(row("a")), qt.IsFalse)
	c.Assert(ids(col.Items()), qt.DeepEquals, []string{"b", "a"})

	col.Prepend(row("c"))
	col.Prepend(row("d"))
	c.Assert(ids(col.Items()), qt.DeepEquals, []string{"d", "c", "b"})
}

func TestCollectionReplaceRemove(t *testing.T) {
	c := qt.New(t)
	col := NewCollection(10, models.Row.ID)
	col.Reset([]models.Row{row("a"), row("b"), row("c")})

	old, ok := col.Replace(models.Row{"id": "b", "status": "x"})
	c.Assert(ok, qt.IsTrue)
	c.Assert(old.Has("status"), qt.IsFalse)
	got, _ := col.Get("b")
	c.Assert(got.String("status"), qt.Equals, "x")
	c.Assert(col.Index("b"), qt.Equals, 1)

	_, ok = col.Replace(row("z"))
	c.Assert(ok, qt.IsFalse)

	removed, ok := col.Remove("a")
	c.Assert(ok, qt.IsTrue)
	c.Assert(removed.ID(), qt.Equals, "a")
	_, ok = col.Remove("a")
	c.Assert(ok, qt.IsFalse)
	c.Assert(ids(col.Items()), qt.DeepEquals, []string{"b", "c"})
}

func TestCollectionResetDedupesAndTruncates(t *testing.T) {
	c := qt.New(t)
	col := NewCollection(3, models.Row.ID)

	col.Reset([]models.Row{row("a"), row("b"), row("a"), row("c"), row("d")})
	c.Assert(ids(col.Items()), qt.DeepEquals, []string{"a", "b", "c"})

	col.Clear()
	c.Assert(col.Len(), qt.Equals, 0)
}

func TestCollectionItemsIsCopy(t *testing.T) {
	c := qt.New(t)
	col := NewCollection(3, models.Row.ID)
	col.Prepend(row("a"))

	items := col.Items()
	items[0] = row("mutated")
	c.Assert(ids(col.Items()), qt.DeepEquals, []string{"a"})
}
