package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/viper"
)

const qrisSessionTTL = 15 * time.Minute

// QRISService issues the QRIS payment sessions shown to buyers. Payment
// confirmation stays manual (human-in-the-loop); the session only carries
// what the buyer needs to transfer the right amount, plus an expiry so stale
// QR images cannot be paid against.
type QRISService struct {
	redis *redis.Client
}

func NewQRISService(redisClient *redis.Client) *QRISService {
	return &QRISService{redis: redisClient}
}

// PaymentSession is the displayable payment request for one order.
type PaymentSession struct {
	OrderID      string    `json:"order_id"`
	Amount       int64     `json:"amount"`
	MerchantName string    `json:"merchant_name"`
	Nonce        string    `json:"nonce"`
	QRImage      string    `json:"qr_image"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// CreatePaymentSession builds a payment session for the order and caches it
// under the order id so re-opening the payment screen shows the same QR.
func (s *QRISService) CreatePaymentSession(ctx context.Context, orderID string, amount int64) (*PaymentSession, error) {
	if s.redis == nil {
		return nil, ErrServiceUnavailable
	}

	viper.SetDefault("payment.merchant_name", "Akunflix Store")
	session := PaymentSession{
		OrderID:      orderID,
		Amount:       amount,
		MerchantName: viper.GetString("payment.merchant_name"),
		Nonce:        generateNonce(),
		ExpiresAt:    time.Now().Add(qrisSessionTTL),
	}

	payload, err := json.Marshal(map[string]any{
		"orderId":  session.OrderID,
		"amount":   session.Amount,
		"merchant": session.MerchantName,
		"nonce":    session.Nonce,
	})
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(base64.URLEncoding.EncodeToString(payload), qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return nil, err
	}
	session.QRImage = base64.StdEncoding.EncodeToString(buf.Bytes())

	cached, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("qris:%s", orderID)
	if err := s.redis.Set(ctx, key, cached, qrisSessionTTL).Err(); err != nil {
		return nil, err
	}

	return &session, nil
}

// GetPaymentSession returns the cached session for an order, or an error if
// it expired.
func (s *QRISService) GetPaymentSession(ctx context.Context, orderID string) (*PaymentSession, error) {
	if s.redis == nil {
		return nil, ErrServiceUnavailable
	}

	key := fmt.Sprintf("qris:%s", orderID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("payment session for order %s expired", orderID)
	}
	if err != nil {
		return nil, err
	}

	var session PaymentSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func generateNonce() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
