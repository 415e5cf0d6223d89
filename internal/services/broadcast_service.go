package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/akunflix/backend/internal/models"
)

// BroadcastService stores admin announcements and hands them to the worker
// one at a time.
type BroadcastService struct {
	db *sql.DB
}

func NewBroadcastService(db *sql.DB) *BroadcastService {
	return &BroadcastService{db: db}
}

// CreateBroadcastParams describes a new announcement.
type CreateBroadcastParams struct {
	Message  string `json:"message" validate:"required"`
	Target   string `json:"target" validate:"required,target"`
	ImageURL string `json:"imageUrl" validate:"omitempty,url"`
}

// CreateBroadcast enqueues a pending broadcast.
func (s *BroadcastService) CreateBroadcast(ctx context.Context, params CreateBroadcastParams) (string, error) {
	id := uuid.NewString()
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO broadcasts (id, message, target, image_url)
			VALUES ($1, $2, $3, $4)`,
			id, params.Message, params.Target, params.ImageURL); err != nil {
			return fmt.Errorf("broadcast insert failed: %w", err)
		}
		notifyTx(tx, "broadcasts", fmt.Sprintf(`{"id":%q,"status":"pending"}`, id))
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListBroadcasts returns broadcasts, newest first.
func (s *BroadcastService) ListBroadcasts(ctx context.Context, limit int) ([]models.Broadcast, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, target, image_url, status, sent_count, total_target, created_at, updated_at
		FROM broadcasts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("broadcast list failed: %w", err)
	}
	defer rows.Close()

	var broadcasts []models.Broadcast
	for rows.Next() {
		var b models.Broadcast
		if err := rows.Scan(&b.ID, &b.Message, &b.Target, &b.ImageURL, &b.Status,
			&b.SentCount, &b.TotalTarget, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, b)
	}
	return broadcasts, rows.Err()
}

// claimPending atomically takes the oldest pending broadcast, moving it to
// processing so a second worker instance cannot pick it up too.
func (s *BroadcastService) claimPending(ctx context.Context) (*models.Broadcast, error) {
	var b models.Broadcast
	err := s.db.QueryRowContext(ctx, `
		UPDATE broadcasts
		SET status = 'processing', updated_at = now()
		WHERE id = (
			SELECT id FROM broadcasts
			WHERE status = 'pending'
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, message, target, image_url, status, sent_count, total_target, created_at, updated_at`).
		Scan(&b.ID, &b.Message, &b.Target, &b.ImageURL, &b.Status,
			&b.SentCount, &b.TotalTarget, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("broadcast claim failed: %w", err)
	}
	return &b, nil
}

// updateProgress records delivery progress mid-run.
func (s *BroadcastService) updateProgress(ctx context.Context, broadcastID string, sent, total int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts SET sent_count = $2, total_target = $3, updated_at = now()
		WHERE id = $1`, broadcastID, sent, total)
	return err
}

// complete marks a broadcast fully delivered.
func (s *BroadcastService) complete(ctx context.Context, broadcastID string, sent, total int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE broadcasts
		SET status = 'completed', sent_count = $2, total_target = $3, updated_at = now()
		WHERE id = $1`, broadcastID, sent, total)
	return err
}

// MessageSender delivers one broadcast message to one user. Implementations
// live in the front-end adapters (Telegram, WhatsApp); the worker neither
// knows nor cares which platform is behind it.
type MessageSender interface {
	SendMessage(ctx context.Context, userID, message string) error
	SendPhoto(ctx context.Context, userID, imageURL, caption string) error
}

// WebhookSender forwards broadcast messages to an adapter's delivery
// endpoint over HTTP.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *WebhookSender) SendMessage(ctx context.Context, userID, message string) error {
	return w.post(ctx, map[string]string{"user_id": userID, "message": message})
}

func (w *WebhookSender) SendPhoto(ctx context.Context, userID, imageURL, caption string) error {
	return w.post(ctx, map[string]string{"user_id": userID, "message": caption, "image_url": imageURL})
}

func (w *WebhookSender) post(ctx context.Context, payload map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("adapter webhook returned %s", resp.Status)
	}
	return nil
}
