// Package database, feed server'ın SQLite bağlantısını, migration sistemini
// ve daemon'ın opsiyonel PostgreSQL bağlantısını yönetir.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver: CGO gerekmez
)

// recoverableErrors, yarım kalmış bir migration tekrar çalıştırıldığında
// atlanabilecek hata pattern'ları.
var recoverableErrors = []string{
	"duplicate column name",
}

// DB, veritabanı bağlantısını saran struct.
// *sql.DB connection pool'dur, goroutine'ler arasında paylaşılabilir.
type DB struct {
	Conn *sql.DB
}

// Migrations, binary'ye gömülü migration dosyalarının kök dizini.
func Migrations() fs.FS {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		// embed pattern'i derleme zamanında doğrulanır; buraya gelinmez.
		panic(err)
	}
	return sub
}

// New, SQLite veritabanını açar ve migration'ları uygular.
//
// dbPath: dosya yolu (ör: ./data/adminpulse.db). migrationsFS genelde Migrations().
func New(dbPath string, migrationsFS fs.FS) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// foreign_keys SQLite'ta varsayılan kapalı; WAL eşzamanlı okuma için.
	// busy_timeout: feed server yazarken daemon'ın okuma sorguları beklesin.
	conn, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn}
	if err := db.runMigrations(migrationsFS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("[database] connected and migrations applied")
	return db, nil
}

// Close, veritabanı bağlantısını kapatır.
func (db *DB) Close() error {
	return db.Conn.Close()
}

// runMigrations, henüz uygulanmamış .sql dosyalarını isim sırasıyla çalıştırır
// ve schema_migrations tablosuna kaydeder.
//
// schema_migrations boşken admin_users tablosu zaten varsa (migration takibinden
// önce kurulmuş bir veritabanı) tüm dosyalar uygulanmış sayılır.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return err
	}

	applied, err := db.appliedMigrations()
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		bootstrapped, err := db.bootstrap(files)
		if err != nil || bootstrapped {
			return err
		}
	}

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}
		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}
		if _, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		log.Printf("[database] migration applied: %s", file)
	}

	return nil
}

// migrationFiles, fs kökündeki .sql dosyalarını alfabetik sırayla döner (001_, 002_, ...).
func migrationFiles(migrationsFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (db *DB) appliedMigrations() (map[string]bool, error) {
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate migration rows: %w", err)
	}
	return applied, nil
}

// bootstrap, takipsiz mevcut kurulumda tüm dosyaları uygulanmış olarak işaretler.
func (db *DB) bootstrap(files []string) (bool, error) {
	var tableCount int
	if err := db.Conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='admin_users'",
	).Scan(&tableCount); err != nil {
		return false, fmt.Errorf("failed to check existing tables: %w", err)
	}
	if tableCount == 0 {
		return false, nil
	}

	for _, file := range files {
		if _, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file); err != nil {
			return false, fmt.Errorf("failed to bootstrap migration %s: %w", file, err)
		}
	}
	log.Printf("[database] bootstrapped %d existing migrations", len(files))
	return true, nil
}

// execStatements, bir migration dosyasını statement-by-statement çalıştırır.
// recoverableErrors'a uyan hatalar loglanıp atlanır.
func (db *DB) execStatements(filename, content string) error {
	for i, stmt := range splitStatements(content) {
		if _, err := db.Conn.Exec(stmt); err != nil {
			if isRecoverable(err) {
				log.Printf("[database] %s: statement %d skipped (recoverable: %v)", filename, i+1, err)
				continue
			}
			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}
	return nil
}

func isRecoverable(err error) bool {
	msg := err.Error()
	for _, pattern := range recoverableErrors {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// splitStatements, SQL metnini noktalı virgülden böler.
// Tek tırnaklı string literal'lerin ('' escape dahil) ve "--" yorumlarının
// içindeki noktalı virgüller yok sayılır.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	inComment := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		switch {
		case inComment:
			if ch == '\n' {
				inComment = false
			}
		case !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-':
			inComment = true
		case ch == '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteString("''")
				i++
				continue
			}
			inString = !inString
		case ch == ';' && !inString:
			flush()
			continue
		}

		if !inComment {
			current.WriteByte(ch)
		}
	}
	flush()

	return statements
}
