package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamvkosarev/rag-chat-gateway/internal/model"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	message_id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	user_name TEXT,
	user_contact TEXT,
	timestamp INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session_id, message_id);
`

// ChatStorage keeps chat history in a single chat_history table, one row per
// message. Profile hints live in the nullable user_* columns of user rows.
type ChatStorage struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and creates the schema.
func Open(ctx context.Context, path string) (*ChatStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite serialises writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	storage, err := NewChatStorage(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

func NewChatStorage(ctx context.Context, db *sql.DB) (*ChatStorage, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create chat_history schema: %w", err)
	}
	return &ChatStorage{db: db, now: time.Now}, nil
}

func (c *ChatStorage) Close() error {
	return c.db.Close()
}

func (c *ChatStorage) AddMessage(ctx context.Context, sessionID string, msg model.Message) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastMicro sql.NullInt64
	err = tx.QueryRowContext(
		ctx, `SELECT MAX(timestamp) FROM chat_history WHERE session_id = ?`, sessionID,
	).Scan(&lastMicro)
	if err != nil {
		return fmt.Errorf("failed to get last timestamp of %s: %w", sessionID, err)
	}
	var last time.Time
	if lastMicro.Valid {
		last = time.UnixMicro(lastMicro.Int64).UTC()
	}
	msg.Timestamp = model.NextTimestamp(last, c.now().UTC())

	var name, contact sql.NullString
	if msg.UserInfo != nil {
		name = sql.NullString{String: msg.UserInfo.Name, Valid: true}
		contact = sql.NullString{String: msg.UserInfo.Contact, Valid: true}
	}
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO chat_history (session_id, role, content, user_name, user_contact, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, string(msg.Role), msg.Content, name, contact, msg.Timestamp.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message of %s: %w", sessionID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message of %s: %w", sessionID, err)
	}
	return nil
}

func (c *ChatStorage) RecentMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return c.AllMessages(ctx, sessionID)
	}
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT role, content, user_name, user_contact, timestamp FROM (
			SELECT message_id, role, content, user_name, user_contact, timestamp
			FROM chat_history WHERE session_id = ? ORDER BY message_id DESC LIMIT ?
		) ORDER BY message_id ASC`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent history of %s: %w", sessionID, err)
	}
	return scanMessages(rows)
}

func (c *ChatStorage) AllMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := c.db.QueryContext(
		ctx,
		`SELECT role, content, user_name, user_contact, timestamp
		FROM chat_history WHERE session_id = ? ORDER BY message_id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history of %s: %w", sessionID, err)
	}
	return scanMessages(rows)
}

func (c *ChatStorage) LatestUserInfo(ctx context.Context, sessionID string) (*model.UserInfo, error) {
	var name, contact sql.NullString
	err := c.db.QueryRowContext(
		ctx,
		`SELECT user_name, user_contact FROM chat_history
		WHERE session_id = ? AND role = ? AND (user_name IS NOT NULL OR user_contact IS NOT NULL)
		ORDER BY message_id DESC LIMIT 1`,
		sessionID, string(model.MessageRoleUser),
	).Scan(&name, &contact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user info of %s: %w", sessionID, err)
	}
	return &model.UserInfo{Name: name.String, Contact: contact.String}, nil
}

func scanMessages(rows *sql.Rows) ([]model.Message, error) {
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var (
			role, content string
			name, contact sql.NullString
			micro         int64
		)
		if err := rows.Scan(&role, &content, &name, &contact, &micro); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgRole, err := model.ParseMessageRole(role)
		if err != nil {
			return nil, fmt.Errorf("failed to read role %q: %w", role, err)
		}
		msg := model.Message{
			Role:      msgRole,
			Content:   content,
			Timestamp: time.UnixMicro(micro).UTC(),
		}
		if name.Valid || contact.Valid {
			msg.UserInfo = &model.UserInfo{Name: name.String, Contact: contact.String}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	return messages, nil
}
