package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/akunflix/backend/internal/models"
)

// AuthService authenticates store operators against provisioned admin keys
// and issues the JWTs the management API requires. Buyers never authenticate
// here; their identity comes from the chat platform through the adapter.
type AuthService struct {
	db *sql.DB
}

func NewAuthService(db *sql.DB) *AuthService {
	return &AuthService{db: db}
}

// dummyKeyHash is a well-formed salt$hash over zero bytes (16-byte salt,
// 32-byte hash). Login verifies against it when the admin id does not exist,
// so the unknown-id path costs the same argon2 evaluation as a wrong key.
const dummyKeyHash = "AAAAAAAAAAAAAAAAAAAAAA==$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="

// Session is an issued management token.
type Session struct {
	Token     string      `json:"token"`
	AdminID   string      `json:"admin_id"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Login verifies an admin key and issues a session token.
func (s *AuthService) Login(ctx context.Context, adminID, key string) (*Session, error) {
	var storedHash string
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT key_hash, role FROM admin_keys WHERE admin_id = $1`,
		adminID).Scan(&storedHash, &role)
	if err == sql.ErrNoRows {
		// Hash anyway so a missing admin id takes as long as a wrong key.
		verifyKey(key, dummyKeyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("admin key lookup failed: %w", err)
	}

	if !verifyKey(key, storedHash) {
		log.Printf("[AUTH] Invalid key for admin %s", adminID)
		return nil, ErrInvalidCredentials
	}

	expiry := time.Duration(viper.GetInt("jwt.expiry_hours")) * time.Hour
	token, err := generateJWT(adminID, role, expiry)
	if err != nil {
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	log.Printf("[AUTH] Login successful for admin %s (role: %s)", adminID, role)
	return &Session{
		Token:     token,
		AdminID:   adminID,
		Role:      models.Role(role),
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// ProvisionKey stores or replaces the key for an admin id. Called from the
// bootstrap path and from the key-rotation endpoint.
func (s *AuthService) ProvisionKey(ctx context.Context, adminID, key string, role models.Role) error {
	hash, err := hashKey(key)
	if err != nil {
		return fmt.Errorf("key hashing failed: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO admin_keys (admin_id, key_hash, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (admin_id) DO UPDATE SET key_hash = EXCLUDED.key_hash, role = EXCLUDED.role, updated_at = now()`,
		adminID, hash, string(role))
	if err != nil {
		return fmt.Errorf("admin key write failed: %w", err)
	}

	log.Printf("[AUTH] Provisioned key for admin %s (role: %s)", adminID, role)
	return nil
}

func generateJWT(adminID, role string, expiry time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": adminID,
		"role":    role,
		"exp":     time.Now().Add(expiry).Unix(),
	})

	return token.SignedString([]byte(viper.GetString("jwt.secret_key")))
}

func hashKey(key string) (string, error) {
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(key), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyKey(key, storedHash string) bool {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(key), salt,
		uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length")))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}
