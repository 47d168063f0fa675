package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
)

// Dialect, TableQuerier'ın ürettiği SQL'in placeholder biçimi.
type Dialect int

const (
	// DialectSQLite: "?" placeholder (modernc.org/sqlite).
	DialectSQLite Dialect = iota
	// DialectPostgres: "$1, $2, ..." placeholder (lib/pq).
	DialectPostgres
)

// Schema, sorgulanabilir tablo/view → kolon listesi.
// Tablo, filtre ve sıralama kolonları bu listeyle doğrulanır; SQL'e sadece
// buradaki identifier'lar girer, kullanıcı değerleri her zaman parametredir.
type Schema map[string][]string

// DefaultSchema, realtime katmanının okuduğu tablolar (migrations/001_init.sql).
var DefaultSchema = Schema{
	"admin_users": {"id", "email", "display_name", "created_at"},
	"admin_notifications": {
		"id", "admin_user_id", "title", "message", "type", "priority", "category",
		"is_read", "action_url", "created_at", "updated_at", "read_at",
	},
	"conversations": {"id", "user_id", "status", "subject", "last_message_at", "created_at", "updated_at"},
	"conversation_details": {
		"id", "user_id", "status", "subject", "last_message_at", "created_at", "updated_at",
		"total_messages", "unread_count", "last_message",
	},
	"messages": {
		"id", "conversation_id", "sender_id", "sender_type", "message_content", "message_type",
		"is_read", "read_at", "created_at", "updated_at",
	},
	"orders":       {"id", "user_id", "status", "total_amount", "notes", "created_at", "updated_at"},
	"appointments": {"id", "user_id", "pet_id", "appointment_date", "appointment_time", "status", "notes", "created_at", "updated_at"},
}

// TableQuerier, models.Query'yi SQL'e çevirip çalıştıran realtime.Querier implementasyonu.
//
// Satırlar tipli struct'a değil models.Row'a scan edilir: kolon seti tablodan
// tabloya değişir ve realtime katmanı tüm tabloları tek bir yoldan işler.
type TableQuerier struct {
	db      database.TxQuerier
	dialect Dialect
	columns map[string][]string
	known   map[string]map[string]bool
}

// NewTableQuerier, yeni bir TableQuerier oluşturur.
func NewTableQuerier(db database.TxQuerier, dialect Dialect, schema Schema) *TableQuerier {
	q := &TableQuerier{
		db:      db,
		dialect: dialect,
		columns: make(map[string][]string, len(schema)),
		known:   make(map[string]map[string]bool, len(schema)),
	}
	for table, cols := range schema {
		q.columns[table] = cols
		set := make(map[string]bool, len(cols))
		for _, col := range cols {
			set[col] = true
		}
		q.known[table] = set
	}
	return q
}

// Query, sorguyu çalıştırır. CountOnly sorgularda satır dönmez, sadece sayı döner;
// diğerlerinde sayı dönen satır sayısıdır.
func (q *TableQuerier) Query(ctx context.Context, query models.Query) ([]models.Row, int, error) {
	stmt, args, err := q.build(query)
	if err != nil {
		return nil, 0, err
	}

	if query.CountOnly {
		var count int
		if err := q.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
			return nil, 0, fmt.Errorf("failed to count %s: %w", query.Table, err)
		}
		return nil, count, nil
	}

	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query %s: %w", query.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s columns: %w", query.Table, err)
	}

	result := []models.Row{}
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s row: %w", query.Table, err)
		}

		row := make(models.Row, len(cols))
		for i, col := range cols {
			// Driver'lar TEXT kolonları []byte dönebilir; Row string bekler.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating %s rows: %w", query.Table, err)
	}

	return result, len(result), nil
}

// build, sorgunun SQL'ini ve parametrelerini üretir.
func (q *TableQuerier) build(query models.Query) (string, []any, error) {
	cols, ok := q.columns[query.Table]
	if !ok {
		return "", nil, fmt.Errorf("unknown table %q", query.Table)
	}
	known := q.known[query.Table]

	var sb strings.Builder
	if query.CountOnly {
		sb.WriteString("SELECT COUNT(*) FROM ")
	} else {
		sb.WriteString("SELECT ")
		sb.WriteString(strings.Join(cols, ", "))
		sb.WriteString(" FROM ")
	}
	sb.WriteString(query.Table)

	var args []any
	for i, f := range query.Filters {
		if !known[f.Column] {
			return "", nil, fmt.Errorf("unknown column %q on %s", f.Column, query.Table)
		}
		if err := f.Validate(); err != nil {
			return "", nil, err
		}

		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(f.Column)

		if f.Op == models.FilterIn {
			values := f.Values()
			if len(values) == 0 {
				// Boş in listesi hiçbir satıra uymaz.
				sb.WriteString(" IN (NULL)")
				continue
			}
			sb.WriteString(" IN (")
			for j, v := range values {
				if j > 0 {
					sb.WriteString(", ")
				}
				args = append(args, literal(v))
				sb.WriteString(q.placeholder(len(args)))
			}
			sb.WriteString(")")
			continue
		}

		sb.WriteString(" ")
		sb.WriteString(sqlOperator(f.Op))
		sb.WriteString(" ")
		args = append(args, literal(f.Value))
		sb.WriteString(q.placeholder(len(args)))
	}

	if !query.CountOnly {
		if query.OrderBy != "" {
			if !known[query.OrderBy] {
				return "", nil, fmt.Errorf("unknown order column %q on %s", query.OrderBy, query.Table)
			}
			sb.WriteString(" ORDER BY ")
			sb.WriteString(query.OrderBy)
			if query.Desc {
				sb.WriteString(" DESC")
			}
		}
		if query.Limit > 0 {
			sb.WriteString(" LIMIT ")
			sb.WriteString(strconv.Itoa(query.Limit))
		}
	}

	return sb.String(), args, nil
}

func (q *TableQuerier) placeholder(n int) string {
	if q.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func sqlOperator(op models.FilterOp) string {
	switch op {
	case models.FilterNeq:
		return "<>"
	case models.FilterGt:
		return ">"
	case models.FilterGte:
		return ">="
	case models.FilterLt:
		return "<"
	case models.FilterLte:
		return "<="
	default:
		return "="
	}
}

// literal, filtre değerini SQL parametresine çevirir.
// true/false bool olarak gider: SQLite driver'ı 1/0'a, lib/pq BOOLEAN'a bağlar.
func literal(v string) any {
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	return v
}
