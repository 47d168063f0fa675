package models

import (
	"fmt"
	"strconv"
	"strings"
)

// FilterOp, satır filtresinin karşılaştırma operatörü (PostgREST isimleri).
type FilterOp string

const (
	FilterEq  FilterOp = "eq"
	FilterNeq FilterOp = "neq"
	FilterGt  FilterOp = "gt"
	FilterGte FilterOp = "gte"
	FilterLt  FilterOp = "lt"
	FilterLte FilterOp = "lte"
	FilterIn  FilterOp = "in"
)

// Filter, "kolon=op.değer" biçiminde tek bir satır filtresi.
//
// Örnekler:
//
//	admin_user_id=eq.42
//	status=in.(Pending,Preparing)
//	appointment_date=gte.2026-01-31
//
// Aynı tip hem subscription filtresi (feed server'da event eşleştirme)
// hem de sorgu koşulu (TableQuerier'da WHERE) olarak kullanılır.
type Filter struct {
	Column string   `json:"column"`
	Op     FilterOp `json:"op"`
	Value  string   `json:"value"`
}

// Eq, en sık kullanılan eşitlik filtresi için kısayol.
func Eq(column, value string) Filter {
	return Filter{Column: column, Op: FilterEq, Value: value}
}

// ParseFilter, "kolon=op.değer" string'ini Filter'a çevirir.
func ParseFilter(s string) (Filter, error) {
	col, rest, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: expected column=op.value", s)
	}
	op, value, ok := strings.Cut(rest, ".")
	if !ok {
		return Filter{}, fmt.Errorf("invalid filter %q: expected op.value", s)
	}
	f := Filter{Column: col, Op: FilterOp(op), Value: value}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate, operatörün desteklendiğini ve in listesinin parantezli olduğunu kontrol eder.
func (f Filter) Validate() error {
	if f.Column == "" {
		return fmt.Errorf("filter column is required")
	}
	switch f.Op {
	case FilterEq, FilterNeq, FilterGt, FilterGte, FilterLt, FilterLte:
		return nil
	case FilterIn:
		if !strings.HasPrefix(f.Value, "(") || !strings.HasSuffix(f.Value, ")") {
			return fmt.Errorf("invalid in filter %q: expected (a,b,...)", f.Value)
		}
		return nil
	default:
		return fmt.Errorf("unsupported filter operator %q", f.Op)
	}
}

// String, filtreyi wire formatına geri çevirir.
func (f Filter) String() string {
	return f.Column + "=" + string(f.Op) + "." + f.Value
}

// Values, in filtresinin eleman listesini döner. Diğer op'lar için tek eleman.
func (f Filter) Values() []string {
	if f.Op != FilterIn {
		return []string{f.Value}
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(f.Value, "("), ")")
	if inner == "" {
		return nil
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(parts[i]), `"`)
	}
	return parts
}

// Match, satırın filtreye uyup uymadığını döner.
// Kolon satırda yoksa eşleşme olmaz.
//
// Karşılaştırma sırası: bool → sayı → string. Tarihler ISO formatında
// olduğu için string karşılaştırması sıralamayı korur.
func (f Filter) Match(row Row) bool {
	if !row.Has(f.Column) {
		return false
	}
	if f.Op == FilterIn {
		for _, v := range f.Values() {
			if compareValue(row, f.Column, v) == 0 {
				return true
			}
		}
		return false
	}

	cmp := compareValue(row, f.Column, f.Value)
	switch f.Op {
	case FilterEq:
		return cmp == 0
	case FilterNeq:
		return cmp != 0
	case FilterGt:
		return cmp > 0
	case FilterGte:
		return cmp >= 0
	case FilterLt:
		return cmp < 0
	case FilterLte:
		return cmp <= 0
	}
	return false
}

// MatchAll, satırın tüm filtrelere uyup uymadığını döner. Boş liste her zaman true.
func MatchAll(row Row, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(row) {
			return false
		}
	}
	return true
}

// compareValue, row[col] ile want'ı karşılaştırır: -1, 0, 1.
func compareValue(row Row, col, want string) int {
	if b, ok := boolLiteral(want); ok && isBoolish(row[col]) {
		got := row.Bool(col)
		switch {
		case got == b:
			return 0
		case !got:
			return -1
		default:
			return 1
		}
	}

	got := row.String(col)
	gf, gerr := strconv.ParseFloat(got, 64)
	wf, werr := strconv.ParseFloat(want, 64)
	if gerr == nil && werr == nil {
		switch {
		case gf < wf:
			return -1
		case gf > wf:
			return 1
		default:
			return 0
		}
	}

	// Tarih kolonu "2026-01-31 10:00:00" olabilir, filtre "2026-01-31".
	// Sadece tarih kısmı verilmişse aynı uzunlukta kıyaslanır.
	if len(want) == len("2006-01-02") && len(got) > len(want) {
		if _, ok := ParseTime(want); ok {
			if _, ok := ParseTime(got); ok {
				got = got[:len(want)]
			}
		}
	}
	return strings.Compare(got, want)
}

// boolLiteral, sadece "true"/"false" yazımlarını kabul eder:
// "1" gibi değerler id karşılaştırmasında bool'a düşmemeli.
func boolLiteral(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// isBoolish, değerin bool olarak yorumlanabilecek bir tipte olup olmadığını döner.
func isBoolish(v any) bool {
	switch t := v.(type) {
	case bool, int64, int, float64:
		return true
	case string:
		_, ok := parseBool(t)
		return ok
	}
	return false
}
