package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"romy/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	query := "INSERT INTO chats (id, user_id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, chat.ID, chat.UserID, chat.Title, chat.Model, chat.CreatedAt, chat.UpdatedAt)
	return err
}

func (r *sqliteRepository) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	query := "SELECT id, user_id, title, model, created_at, updated_at FROM chats WHERE id = ?"
	row := r.db.QueryRowContext(ctx, query, chatID)
	var chat model.Chat
	err := row.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *sqliteRepository) GetChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	query := "SELECT id, user_id, title, model, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC"
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []*model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.Model, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, &chat)
	}
	return chats, rows.Err()
}

func (r *sqliteRepository) UpdateChatTitle(ctx context.Context, chatID, newTitle string) error {
	query := "UPDATE chats SET title = ?, updated_at = ? WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, newTitle, time.Now().UTC(), chatID)
	return err
}

func (r *sqliteRepository) DeleteChat(ctx context.Context, chatID string) error {
	query := "DELETE FROM chats WHERE id = ?"
	_, err := r.db.ExecContext(ctx, query, chatID)
	return err
}

// AddMessage persists a message and bumps the chat's updated_at inside one
// transaction, so a chat's recency never disagrees with its messages.
func (r *sqliteRepository) AddMessage(ctx context.Context, message *model.Message, chatID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	parts, err := json.Marshal(message.Parts)
	if err != nil {
		return fmt.Errorf("could not marshal parts: %w", err)
	}

	var metadata sql.NullString
	if len(message.Metadata) > 0 && string(message.Metadata) != "null" {
		metadata.String = string(message.Metadata)
		metadata.Valid = true
	}

	var citations sql.NullString
	if len(message.Citations) > 0 {
		raw, err := json.Marshal(message.Citations)
		if err != nil {
			return fmt.Errorf("could not marshal citations: %w", err)
		}
		citations.String = string(raw)
		citations.Valid = true
	}

	insertMsgQuery := `
		INSERT INTO messages (id, chat_id, role, parts, timestamp, metadata, citations)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, insertMsgQuery,
		message.ID,
		chatID,
		message.Role,
		string(parts),
		message.Timestamp,
		metadata,
		citations,
	)
	if err != nil {
		return fmt.Errorf("could not insert message: %w", err)
	}

	updateChatQuery := "UPDATE chats SET updated_at = ? WHERE id = ?"
	_, err = tx.ExecContext(ctx, updateChatQuery, time.Now().UTC(), chatID)
	if err != nil {
		return fmt.Errorf("could not update chat timestamp: %w", err)
	}

	return tx.Commit()
}

func (r *sqliteRepository) GetMessagesByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	query := `
		SELECT id, role, parts, timestamp, metadata, citations
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp ASC
	`
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var parts string
		var metadata sql.NullString
		var citations sql.NullString

		if err := rows.Scan(&msg.ID, &msg.Role, &parts, &msg.Timestamp, &metadata, &citations); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(parts), &msg.Parts); err != nil {
			return nil, fmt.Errorf("could not unmarshal parts for message %s: %w", msg.ID, err)
		}
		if metadata.Valid {
			msg.Metadata = json.RawMessage(metadata.String)
		}
		if citations.Valid {
			if err := json.Unmarshal([]byte(citations.String), &msg.Citations); err != nil {
				return nil, fmt.Errorf("could not unmarshal citations for message %s: %w", msg.ID, err)
			}
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *sqliteRepository) SaveFeedback(ctx context.Context, fb *model.Feedback) error {
	query := "INSERT INTO feedback (id, chat_id, message_id, rating, comment, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	_, err := r.db.ExecContext(ctx, query, fb.ID, fb.ChatID, fb.MessageID, fb.Rating, fb.Comment, fb.CreatedAt)
	return err
}

func (r *sqliteRepository) GetPreference(ctx context.Context, key string) (string, error) {
	row := r.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *sqliteRepository) SetPreference(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	_, err := r.db.ExecContext(ctx, query, key, value)
	return err
}
