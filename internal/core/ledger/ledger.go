// Package ledger holds the pure balance-transition engine.
//
// Every wallet mutation in the system is expressed as a Delta computed here
// and applied by the wallet store in a single atomic read-modify-write. The
// engine never touches storage; deciding and persisting are separate steps.
package ledger

import (
	"usdt-custody/internal/core/domain"
	"usdt-custody/pkg/apperror"

	"github.com/shopspring/decimal"
)

// Delta is an explicit balance movement: the amounts to add to each of the
// three wallet components. A well-formed delta keeps total == available+frozen.
type Delta struct {
	Available decimal.Decimal
	Frozen    decimal.Decimal
	Total     decimal.Decimal
}

// IsZero reports whether the delta moves nothing.
func (d Delta) IsZero() bool {
	return d.Available.IsZero() && d.Frozen.IsZero() && d.Total.IsZero()
}

// Reserve freezes funds for a submitted Sell or Withdrawal (Phase A):
// available -amount, frozen +amount, total unchanged.
func Reserve(amount decimal.Decimal) (Delta, error) {
	if !amount.IsPositive() {
		return Delta{}, apperror.ErrInvalidAmount()
	}
	return Delta{
		Available: amount.Neg(),
		Frozen:    amount,
		Total:     decimal.Zero,
	}, nil
}

// Credit adds approved top-up funds: the single moment total grows.
func Credit(amount decimal.Decimal) Delta {
	return Delta{
		Available: amount,
		Frozen:    decimal.Zero,
		Total:     amount,
	}
}

// Burn removes frozen funds from the system (approved Sell or Withdrawal).
func Burn(amount decimal.Decimal) Delta {
	return Delta{
		Available: decimal.Zero,
		Frozen:    amount.Neg(),
		Total:     amount.Neg(),
	}
}

// Release refunds frozen funds back to available (rejected Sell or
// Withdrawal). Total is unchanged: reject is refund-neutral.
func Release(amount decimal.Decimal) Delta {
	return Delta{
		Available: amount,
		Frozen:    amount.Neg(),
		Total:     decimal.Zero,
	}
}

// Resolve computes the Phase B wallet movement and resulting status for a
// PROCESSING request of the given variant.
//
//	variant     APPROVE            REJECT
//	TopUp       Credit(amount)     no movement
//	Sell        Burn(amount)       Release(amount)
//	Withdrawal  Burn(amount)       Release(amount)
func Resolve(variant domain.RequestVariant, action domain.ResolveAction, amount decimal.Decimal) (Delta, domain.RequestStatus, error) {
	switch action {
	case domain.ActionApprove:
		if variant == domain.VariantTopUp {
			return Credit(amount), domain.StatusCompleted, nil
		}
		return Burn(amount), domain.StatusCompleted, nil
	case domain.ActionReject:
		if variant == domain.VariantTopUp {
			return Delta{}, domain.StatusFailed, nil
		}
		return Release(amount), domain.StatusFailed, nil
	default:
		return Delta{}, "", apperror.ErrInvalidAction()
	}
}

// Apply computes the wallet state after a delta without mutating the input.
// It rejects any transition that would drive a component negative or break
// the total == available + frozen invariant.
func Apply(w domain.Wallet, d Delta) (domain.Wallet, error) {
	next := w
	next.Available = w.Available.Add(d.Available)
	next.Frozen = w.Frozen.Add(d.Frozen)
	next.Total = w.Total.Add(d.Total)

	if next.Available.IsNegative() || next.Frozen.IsNegative() || next.Total.IsNegative() {
		return domain.Wallet{}, apperror.ErrInsufficientFunds()
	}
	if !next.Consistent() {
		return domain.Wallet{}, apperror.InternalError(errInvariantBroken)
	}
	return next, nil
}

var errInvariantBroken = invariantError{}

type invariantError struct{}

func (invariantError) Error() string {
	return "ledger: balance_total diverged from balance_available + balance_frozen"
}
