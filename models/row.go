// Package models, uygulamanın domain modellerini (veri yapıları) tanımlar.
//
// Realtime katmanı tablolardan gelen satırları tipli struct'lar yerine
// Row (kolon adı → değer) olarak taşır. Change feed payload'ları tablodan
// tabloya farklı kolonlar içerir; Row ile dispatcher tek bir yoldan
// tüm tabloları işleyebilir. Tipli struct'lar (Notification, Order, ...)
// feed server tarafında, yazma yolunda kullanılır.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row, bir tablo satırının kolon adı → değer haritası.
//
// Değerler JSON decode'dan (string, float64, bool, nil) veya
// database/sql scan'inden (int64, []byte, time.Time, ...) gelebilir.
// Yardımcı metodlar bu farkları normalize eder.
type Row map[string]any

// TimestampLayout, zaman kolonlarının saklandığı ve payload'larda taşındığı format.
// Sabit genişlikli (nanosaniye, UTC) olduğu için string sıralaması zaman sıralamasıdır.
const TimestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTimestamp, t'yi UTC TimestampLayout string'ine çevirir.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// dateLayouts, tarih kolonlarını parse ederken denenen formatlar.
// SQLite datetime('now') çıktısı, ISO date ve RFC3339 hepsi desteklenir.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ID, satırın "id" kolonunu string olarak döner. Yoksa boş string.
func (r Row) ID() string {
	return r.String("id")
}

// String, kolonu string'e çevirir. nil veya eksik kolon için "".
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return FormatTimestamp(t)
	default:
		return fmt.Sprint(t)
	}
}

// Bool, kolonu bool olarak yorumlar.
// SQLite boolean'ları 0/1 integer olarak saklar, JSON'da true/false gelir,
// bazı driver'lar "t"/"f" string döner: hepsi burada eşitlenir.
func (r Row) Bool(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int:
		return t != 0
	case float64:
		return t != 0
	case string:
		b, _ := parseBool(t)
		return b
	case []byte:
		b, _ := parseBool(string(t))
		return b
	default:
		return false
	}
}

// Time, kolonu time.Time olarak parse eder.
// İkinci dönüş değeri false ise kolon yok veya parse edilemedi.
func (r Row) Time(key string) (time.Time, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return time.Time{}, false
	}
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	return ParseTime(r.String(key))
}

// Has, kolon payload'da var mı kontrol eder.
// Supabase benzeri feed'lerde DELETE payload'ı sadece primary key taşıyabilir:
// bir kolonun "false" olması ile hiç gelmemesi farklı şeylerdir.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone, satırın sığ (shallow) kopyasını döner.
// Store dışına verilen satırlar kopyalanır: consumer'lar state'i bozamaz.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Merge, r'nin kopyası üzerine patch'i yazar.
// Feed'den gelen UPDATE payload'ı view kolonlarını (ör: conversation_details'teki
// customer_name) içermeyebilir; mevcut kolonlar korunur, gelenler ezilir.
func (r Row) Merge(patch Row) Row {
	out := r.Clone()
	if out == nil {
		out = make(Row, len(patch))
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// ParseTime, desteklenen tarih formatlarından biriyle string'i parse eder.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "yes":
		return true, true
	case "false", "f", "0", "no":
		return false, true
	}
	return false, false
}
