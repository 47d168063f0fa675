package models

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want Filter
		err  string
	}{{
		in:   "admin_user_id=eq.42",
		want: Filter{Column: "admin_user_id", Op: FilterEq, Value: "42"},
	}, {
		in:   "status=in.(Pending,Preparing)",
		want: Filter{Column: "status", Op: FilterIn, Value: "(Pending,Preparing)"},
	}, {
		in:   " appointment_date=gte.2026-01-31 ",
		want: Filter{Column: "appointment_date", Op: FilterGte, Value: "2026-01-31"},
	}, {
		in:   "total_amount=lt.10.5",
		want: Filter{Column: "total_amount", Op: FilterLt, Value: "10.5"},
	}, {
		in:  "status",
		err: `invalid filter "status": expected column=op.value`,
	}, {
		in:  "=eq.1",
		err: `invalid filter "=eq.1": expected column=op.value`,
	}, {
		in:  "status=Pending",
		err: `invalid filter "status=Pending": expected op.value`,
	}, {
		in:  "status=like.%Pend%",
		err: `unsupported filter operator "like"`,
	}, {
		in:  "status=in.Pending,Preparing",
		err: `invalid in filter "Pending,Preparing": expected \(a,b,...\)`,
	}}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			c := qt.New(t)
			f, err := ParseFilter(test.in)
			if test.err != "" {
				c.Assert(err, qt.ErrorMatches, test.err)
				return
			}
			c.Assert(err, qt.IsNil)
			c.Assert(f, qt.Equals, test.want)
			c.Assert(f.String(), qt.Equals, test.want.Column+"="+string(test.want.Op)+"."+test.want.Value)
		})
	}
}

func TestFilterValues(t *testing.T) {
	c := qt.New(t)
	c.Assert(Filter{Op: FilterIn, Value: `(Pending, "Preparing")`}.Values(), qt.DeepEquals, []string{"Pending", "Preparing"})
	c.Assert(Filter{Op: FilterIn, Value: "()"}.Values(), qt.HasLen, 0)
	c.Assert(Eq("id", "7").Values(), qt.DeepEquals, []string{"7"})
}

func TestFilterMatch(t *testing.T) {
	row := Row{
		"id":               "o-1",
		"admin_user_id":    int64(42),
		"status":           "Pending",
		"is_read":          int64(0),
		"total_amount":     float64(99.5),
		"appointment_date": "2026-01-31 10:00:00",
		"notes":            nil,
	}
	tests := []struct {
		filter string
		want   bool
	}{
		{"admin_user_id=eq.42", true},
		{"admin_user_id=eq.7", false},
		{"admin_user_id=neq.7", true},
		{"status=in.(Pending,Preparing)", true},
		{"status=in.(Shipped)", false},
		{"is_read=eq.false", true},
		{"is_read=eq.true", false},
		{"total_amount=gt.100", false},
		{"total_amount=lte.99.5", true},
		{"appointment_date=gte.2026-01-31", true},
		{"appointment_date=gt.2026-01-31", false},
		{"appointment_date=lt.2026-02-01", true},
		{"missing=eq.x", false},
		{"notes=eq.", true},
	}
	for _, test := range tests {
		t.Run(test.filter, func(t *testing.T) {
			c := qt.New(t)
			f, err := ParseFilter(test.filter)
			c.Assert(err, qt.IsNil)
			c.Assert(f.Match(row), qt.Equals, test.want)
		})
	}
}

func TestMatchAll(t *testing.T) {
	c := qt.New(t)
	row := Row{"status": "Pending", "user_id": "u-1"}

	c.Assert(MatchAll(row, nil), qt.IsTrue)
	c.Assert(MatchAll(row, []Filter{Eq("status", "Pending"), Eq("user_id", "u-1")}), qt.IsTrue)
	c.Assert(MatchAll(row, []Filter{Eq("status", "Pending"), Eq("user_id", "u-2")}), qt.IsFalse)
}
