package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/adminpulse/models"
)

// isUniqueViolation, SQLite UNIQUE constraint hatası mı kontrol eder.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ts, time.Time'ı TEXT kolona yazılacak sabit genişlikli string'e çevirir.
func ts(t time.Time) string {
	return models.FormatTimestamp(t)
}

// nullTS, opsiyonel zamanı NULL veya TEXT olarak yazar.
func nullTS(t *time.Time) any {
	if t == nil {
		return nil
	}
	return ts(*t)
}

// timeScanner, TEXT zaman kolonunu time.Time'a scan eder.
// nullable true ise NULL kabul edilir ve *ptr nil kalır.
type timeScanner struct {
	dst      *time.Time
	ptr      **time.Time
	nullable bool
}

func scanTime(dst *time.Time) *timeScanner      { return &timeScanner{dst: dst} }
func scanNullTime(ptr **time.Time) *timeScanner { return &timeScanner{ptr: ptr, nullable: true} }

// Scan, sql.Scanner implementasyonu.
func (s *timeScanner) Scan(src any) error {
	var t time.Time
	switch v := src.(type) {
	case nil:
		if !s.nullable {
			return fmt.Errorf("unexpected NULL timestamp")
		}
		*s.ptr = nil
		return nil
	case time.Time:
		t = v
	case string:
		parsed, ok := models.ParseTime(v)
		if !ok {
			return fmt.Errorf("invalid timestamp %q", v)
		}
		t = parsed
	case []byte:
		parsed, ok := models.ParseTime(string(v))
		if !ok {
			return fmt.Errorf("invalid timestamp %q", v)
		}
		t = parsed
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}

	t = t.UTC()
	if s.nullable {
		*s.ptr = &t
	} else {
		*s.dst = t
	}
	return nil
}


// isForeignKeyViolation, SQLite FOREIGN KEY constraint hatası mı kontrol eder.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
