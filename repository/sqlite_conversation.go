package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/akinalp/adminpulse/database"
	"github.com/akinalp/adminpulse/models"
	"github.com/akinalp/adminpulse/pkg"
)

type sqliteConversationRepo struct {
	db database.TxQuerier
}

// NewSQLiteConversationRepo, constructor: interface döner.
func NewSQLiteConversationRepo(db database.TxQuerier) ConversationRepository {
	return &sqliteConversationRepo{db: db}
}

const conversationColumns = `id, user_id, status, subject, last_message_at, created_at, updated_at`

func scanConversation(row interface{ Scan(...any) error }) (*models.Conversation, error) {
	c := &models.Conversation{}
	var subject sql.NullString
	err := row.Scan(&c.ID, &c.UserID, &c.Status, &subject,
		scanTime(&c.LastMessageAt), scanTime(&c.CreatedAt), scanTime(&c.UpdatedAt))
	if err != nil {
		return nil, err
	}
	if subject.Valid {
		c.Subject = &subject.String
	}
	return c, nil
}

func (r *sqliteConversationRepo) Create(ctx context.Context, c *models.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (`+conversationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Status, c.Subject, ts(c.LastMessageAt), ts(c.CreatedAt), ts(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *sqliteConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

func (r *sqliteConversationRepo) Touch(ctx context.Context, id string, at time.Time) (*models.Conversation, error) {
	return r.update(ctx, `last_message_at = ?, updated_at = ?`, id, ts(at), ts(at))
}

func (r *sqliteConversationRepo) UpdateStatus(ctx context.Context, id, status string, at time.Time) (*models.Conversation, error) {
	return r.update(ctx, `status = ?, updated_at = ?`, id, status, ts(at))
}

// update, SET ifadesini uygular ve güncel satırı döner.
func (r *sqliteConversationRepo) update(ctx context.Context, set, id string, args ...any) (*models.Conversation, error) {
	c, err := scanConversation(r.db.QueryRowContext(ctx,
		`UPDATE conversations SET `+set+` WHERE id = ? RETURNING `+conversationColumns,
		append(args, id)...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return c, nil
}

type sqliteMessageRepo struct {
	db database.TxQuerier
}

// NewSQLiteMessageRepo, constructor: interface döner.
func NewSQLiteMessageRepo(db database.TxQuerier) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `id, conversation_id, sender_id, sender_type, message_content, message_type,
	is_read, read_at, created_at, updated_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	m := &models.Message{}
	err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.SenderType, &m.Content, &m.MessageType,
		&m.IsRead, scanNullTime(&m.ReadAt), scanTime(&m.CreatedAt), scanTime(&m.UpdatedAt))
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *sqliteMessageRepo) Create(ctx context.Context, m *models.Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.SenderID, string(m.SenderType), m.Content, m.MessageType,
		m.IsRead, nullTS(m.ReadAt), ts(m.CreatedAt), ts(m.UpdatedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: conversation %s", pkg.ErrNotFound, m.ConversationID)
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (r *sqliteMessageRepo) MarkConversationRead(ctx context.Context, conversationID string, at time.Time) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE messages SET is_read = 1, read_at = ?, updated_at = ?
		WHERE conversation_id = ? AND sender_type = 'user' AND is_read = 0
		RETURNING `+messageColumns,
		ts(at), ts(at), conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark messages read: %w", err)
	}
	defer rows.Close()

	var updated []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		updated = append(updated, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return updated, nil
}

func (r *sqliteMessageRepo) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.db, "messages", id)
}
