package integration

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ports"
	"usdt-custody/internal/service"
	"usdt-custody/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopVerifier skips the password re-check so concurrency tests do not pay
// the Argon2 cost on every goroutine.
type noopVerifier struct{}

func (noopVerifier) VerifySecret(ctx context.Context, userID uuid.UUID, plaintext string) error {
	return nil
}

// noopEncryptor passes payment details through unchanged.
type noopEncryptor struct{}

func (noopEncryptor) Encrypt(plaintext string) (string, error)  { return plaintext, nil }
func (noopEncryptor) Decrypt(ciphertext string) (string, error) { return ciphertext, nil }

type concurrencyEnv struct {
	wallets     *inMemoryWalletRepo
	topups      *inMemoryTopUpRepo
	sells       *inMemorySellRepo
	withdrawals *inMemoryWithdrawalRepo
	outbox      *inMemoryOutboxRepo
	topupSvc    ports.TopUpService
	sellSvc     ports.SellService
	withdrawSvc ports.WithdrawService
	userID      uuid.UUID
}

// newConcurrencyEnv builds the service stack directly, seeding one wallet
// with the given available balance.
func newConcurrencyEnv(t *testing.T, available int64) *concurrencyEnv {
	t.Helper()

	env := &concurrencyEnv{
		wallets:     newInMemoryWalletRepo(),
		topups:      newInMemoryTopUpRepo(),
		sells:       newInMemorySellRepo(),
		withdrawals: newInMemoryWithdrawalRepo(),
		outbox:      newInMemoryOutboxRepo(),
		userID:      uuid.New(),
	}

	log := zerolog.Nop()
	transactor := newInMemoryTransactor()

	env.topupSvc = service.NewTopUpService(env.topups, env.wallets, env.outbox, transactor, log)
	env.sellSvc = service.NewSellService(env.sells, env.wallets, env.outbox, noopVerifier{}, noopEncryptor{}, transactor, decimal.NewFromInt(90), log)
	env.withdrawSvc = service.NewWithdrawService(env.withdrawals, env.wallets, env.outbox, noopVerifier{}, transactor, log)

	now := time.Now().UTC()
	amount := decimal.NewFromInt(available)
	wallet := domain.NewWallet(env.userID, now)
	wallet.Available = amount
	wallet.Total = amount
	require.NoError(t, env.wallets.Create(context.Background(), nil, wallet))

	return env
}

func isCode(err error, code string) bool {
	var appErr *apperror.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// Many concurrent reservations against one wallet: the number that succeed
// is bounded by the available balance, and the invariant holds afterwards.
func TestConcurrentSellsNeverOverdraw(t *testing.T) {
	env := newConcurrencyEnv(t, 100)
	ctx := context.Background()

	const workers = 10
	req := ports.SubmitSellRequest{
		Country:        "NG",
		UnitPrice:      decimal.NewFromInt(80),
		Units:          decimal.NewFromInt(30),
		PaymentDetails: json.RawMessage(`{"bank":"x"}`),
		Password:       "ignored",
	}

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.sellSvc.Submit(ctx, env.userID, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case isCode(err, "LED_001"):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 100 available / 30 per sell: at most 3 reservations can fit.
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)

	wallet, err := env.wallets.GetByUserID(ctx, env.userID)
	require.NoError(t, err)
	assert.True(t, wallet.Consistent(), "wallet invariant broken: %+v", wallet)
	assert.Equal(t, "10", wallet.Available.String())
	assert.Equal(t, "90", wallet.Frozen.String())
	assert.Equal(t, "100", wallet.Total.String())
}

// Mixed reservations from both request kinds share the same guard.
func TestConcurrentMixedReservations(t *testing.T) {
	env := newConcurrencyEnv(t, 50)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var err error
			if n%2 == 0 {
				_, err = env.sellSvc.Submit(ctx, env.userID, ports.SubmitSellRequest{
					Country:        "NG",
					UnitPrice:      decimal.NewFromInt(10),
					Units:          decimal.NewFromInt(20),
					PaymentDetails: json.RawMessage(`{}`),
				})
			} else {
				_, err = env.withdrawSvc.Submit(ctx, env.userID, ports.SubmitWithdrawalRequest{
					Amount:        decimal.NewFromInt(20),
					WalletAddress: "TXYZa1b2c3d4e5f6g7h8i9j0",
				})
			}
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.True(t, isCode(err, "LED_001"), "unexpected error: %v", err)
		}
	}

	// 50 available / 20 per request: exactly 2 fit.
	assert.Equal(t, 2, succeeded)

	wallet, err := env.wallets.GetByUserID(ctx, env.userID)
	require.NoError(t, err)
	assert.True(t, wallet.Consistent())
	assert.Equal(t, "10", wallet.Available.String())
	assert.Equal(t, "40", wallet.Frozen.String())
}

// Two admins race to resolve the same request: the compare-and-set lets
// exactly one transition through, and the wallet moves exactly once.
func TestConcurrentResolveExactlyOneWins(t *testing.T) {
	env := newConcurrencyEnv(t, 0)
	ctx := context.Background()

	topup, err := env.topupSvc.Submit(ctx, env.userID, ports.SubmitTopUpRequest{
		Amount:      decimal.NewFromInt(500),
		TxReference: "bank-tx-race",
	})
	require.NoError(t, err)

	const racers = 2
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.topupSvc.Resolve(ctx, topup.ID, domain.ActionApprove)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case isCode(err, "LED_003"):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one resolve must win")
	assert.Equal(t, 1, lost)

	// Credited once, not twice
	wallet, err := env.wallets.GetByUserID(ctx, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "500", wallet.Available.String())
	assert.Equal(t, "500", wallet.Total.String())

	// And exactly one balance event was queued
	assert.Len(t, env.outbox.all(), 1)
}

// A resolve racing a reject in the other direction also settles to a single
// terminal state.
func TestConcurrentApproveVsReject(t *testing.T) {
	env := newConcurrencyEnv(t, 100)
	ctx := context.Background()

	withdrawal, err := env.withdrawSvc.Submit(ctx, env.userID, ports.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(60),
		WalletAddress: "TXYZa1b2c3d4e5f6g7h8i9j0",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, action := range []domain.ResolveAction{domain.ActionApprove, domain.ActionReject} {
		wg.Add(1)
		go func(a domain.ResolveAction) {
			defer wg.Done()
			_, err := env.withdrawSvc.Resolve(ctx, withdrawal.ID, a)
			results <- err
		}(action)
	}
	wg.Wait()
	close(results)

	var won int
	for err := range results {
		if err == nil {
			won++
		} else {
			require.True(t, isCode(err, "LED_003"), "unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)

	// Either outcome leaves a consistent wallet with nothing frozen.
	wallet, err := env.wallets.GetByUserID(ctx, env.userID)
	require.NoError(t, err)
	assert.True(t, wallet.Consistent())
	assert.Equal(t, "0", wallet.Frozen.String())
	final, err := env.withdrawals.GetByID(ctx, withdrawal.ID)
	require.NoError(t, err)
	assert.True(t, final.Status.IsTerminal())
}
