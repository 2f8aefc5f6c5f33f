package ports

import (
	"context"
	"encoding/json"
	"time"

	"usdt-custody/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, isAdmin bool) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// SecretVerifier re-checks a user's password before a balance reservation.
type SecretVerifier interface {
	// VerifySecret returns nil if plaintext matches the stored secret for
	// userID, apperror.ErrInvalidCredentials otherwise.
	VerifySecret(ctx context.Context, userID uuid.UUID, plaintext string) error
}

// EventPublisher hands a committed outbox event to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, evt *domain.OutboxEvent) error
}

// --- Service Ports (Business Logic) ---

// AuthService defines registration, login, and the secret-verification
// capability other services depend on.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SecretVerifier
}

// RegisterRequest holds input for user registration.
type RegisterRequest struct {
	Email    string
	Username string
	Phone    *string
	Password string
}

// AuthResult bundles the authenticated user, their wallet, and a session token.
type AuthResult struct {
	User      *domain.User
	Wallet    *domain.Wallet
	Token     string
	ExpiresAt time.Time
}

// WalletService exposes read access to a user's balances.
type WalletService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
}

// TopUpService manages the top-up request lifecycle.
type TopUpService interface {
	Submit(ctx context.Context, userID uuid.UUID, req SubmitTopUpRequest) (*domain.TopUp, error)
	Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.TopUp, error)
	ListPending(ctx context.Context) ([]domain.TopUp, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]domain.TopUp, error)
}

// SubmitTopUpRequest holds validated input for a top-up submission.
type SubmitTopUpRequest struct {
	Amount        decimal.Decimal
	TxReference   string
	ScreenshotURL string // opaque, already uploaded elsewhere
}

// SellService manages the sell request lifecycle.
type SellService interface {
	Submit(ctx context.Context, userID uuid.UUID, req SubmitSellRequest) (*domain.Sell, error)
	Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.Sell, error)
	ListPending(ctx context.Context) ([]domain.Sell, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Sell, error)
}

// SubmitSellRequest holds validated input for a sell submission.
type SubmitSellRequest struct {
	Country        string
	UnitPrice      decimal.Decimal
	Units          decimal.Decimal
	PaymentDetails json.RawMessage // opaque structured blob, encrypted at rest
	Password       string
}

// WithdrawService manages the withdrawal request lifecycle.
type WithdrawService interface {
	Submit(ctx context.Context, userID uuid.UUID, req SubmitWithdrawalRequest) (*domain.Withdrawal, error)
	Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.Withdrawal, error)
	ListPending(ctx context.Context) ([]domain.Withdrawal, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Withdrawal, error)
}

// SubmitWithdrawalRequest holds validated input for a withdrawal submission.
type SubmitWithdrawalRequest struct {
	Amount        decimal.Decimal
	WalletAddress string
	Password      string
}
