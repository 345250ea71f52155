package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lmarchetti/sidechat/internal/apperr"
	"github.com/lmarchetti/sidechat/internal/model"
)

const messageColumns = "message_id, sender_id, receiver_id, body, image_url, created_at, updated_at"

type CreateMessageParams struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Text       string
	Image      string
	CreatedAt  time.Time
}

func scanMessage(row pgx.Row) (model.Message, error) {
	var (
		m                    model.Message
		id, sender, receiver pgtype.UUID
		image                pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &sender, &receiver, &m.Text, &image, &createdAt, &updatedAt); err != nil {
		return model.Message{}, err
	}
	m.ID = id.Bytes
	m.SenderID = sender.Bytes
	m.ReceiverID = receiver.Bytes
	m.Image = image.String
	m.CreatedAt = createdAt.Time
	m.UpdatedAt = updatedAt.Time
	return m, nil
}

func (q *Queries) CreateMessage(ctx context.Context, p CreateMessageParams) (model.Message, error) {
	row := q.pool.QueryRow(ctx, `
		INSERT INTO messages (message_id, sender_id, receiver_id, body, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING `+messageColumns,
		pgUUID(p.ID), pgUUID(p.SenderID), pgUUID(p.ReceiverID),
		p.Text, pgText(p.Image),
		pgtype.Timestamptz{Time: p.CreatedAt, Valid: true})

	m, err := scanMessage(row)
	if err != nil {
		return model.Message{}, fmt.Errorf("database: create message: %w", err)
	}
	return m, nil
}

func (q *Queries) GetMessageByID(ctx context.Context, id uuid.UUID) (model.Message, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE message_id = $1`, pgUUID(id))

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Message{}, apperr.NotFound("message not found")
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("database: get message: %w", err)
	}
	return m, nil
}

// ListMessagesBetween returns the full conversation between two users,
// oldest first, regardless of direction.
func (q *Queries) ListMessagesBetween(ctx context.Context, a, b uuid.UUID) ([]model.Message, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC`, pgUUID(a), pgUUID(b))
	if err != nil {
		return nil, fmt.Errorf("database: list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("database: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (q *Queries) UpdateMessage(ctx context.Context, id uuid.UUID, text, image string) (model.Message, error) {
	row := q.pool.QueryRow(ctx, `
		UPDATE messages
		SET body = $2, image_url = $3, updated_at = $4
		WHERE message_id = $1
		RETURNING `+messageColumns,
		pgUUID(id), text, pgText(image),
		pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true})

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Message{}, apperr.NotFound("message not found")
	}
	if err != nil {
		return model.Message{}, fmt.Errorf("database: update message: %w", err)
	}
	return m, nil
}

func (q *Queries) DeleteMessage(ctx context.Context, id uuid.UUID) error {
	tag, err := q.pool.Exec(ctx,
		`DELETE FROM messages WHERE message_id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("database: delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}
