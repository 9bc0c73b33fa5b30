package limits

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/safemath"
	"github.com/eigerco/tollbridge/internal/state"
)

// Store is the limiter state storage. *store.Txn implements it.
type Store interface {
	Limits(dir state.Direction) (state.Limits, error)
	PutLimits(dir state.Direction, l state.Limits) error
	OutOfLimit() (*uint256.Int, error)
	PutOutOfLimit(v *uint256.Int) error
}

type Decision uint8

const (
	Admitted Decision = iota
	Deferred
)

func (d Decision) String() string {
	if d == Deferred {
		return "deferred"
	}
	return "admitted"
}

// Limiter enforces per transaction bounds and the daily limit of both
// directions. fee is the toll every MinPerTx must exceed.
type Limiter struct {
	fee uint256.Int
}

func New(fee *uint256.Int) *Limiter {
	l := &Limiter{}
	if fee != nil {
		l.fee = *fee
	}
	return l
}

// CheckBounds fails with ErrBelowMinimum or ErrAboveMaxPerTx.
func CheckBounds(l state.Limits, value *uint256.Int) error {
	if value.Lt(&l.MinPerTx) {
		return fmt.Errorf("%w: %s < %s", common.ErrBelowMinimum, value.Dec(), l.MinPerTx.Dec())
	}
	if value.Gt(&l.MaxPerTx) {
		return fmt.Errorf("%w: %s > %s", common.ErrAboveMaxPerTx, value.Dec(), l.MaxPerTx.Dec())
	}
	return nil
}

// CheckBounds checks value against the per transaction bounds of dir.
func (lim *Limiter) CheckBounds(s Store, dir state.Direction, value *uint256.Int) error {
	l, err := s.Limits(dir)
	if err != nil {
		return err
	}
	return CheckBounds(l, value)
}

// Admit adds value to the spent total of dir when it fits in the daily
// limit. Otherwise it returns Deferred and changes nothing.
func (lim *Limiter) Admit(s Store, dir state.Direction, value *uint256.Int) (Decision, error) {
	l, err := s.Limits(dir)
	if err != nil {
		return Admitted, err
	}
	if err := CheckBounds(l, value); err != nil {
		return Admitted, err
	}
	spent, ok := safemath.Add(&l.Spent, value)
	if !ok || spent.Gt(&l.DailyLimit) {
		return Deferred, nil
	}
	l.Spent = *spent
	if err := s.PutLimits(dir, l); err != nil {
		return Admitted, err
	}
	return Admitted, nil
}

// Defer parks value in the out of limit accumulator.
func (lim *Limiter) Defer(s Store, value *uint256.Int) error {
	current, err := s.OutOfLimit()
	if err != nil {
		return err
	}
	total, err := safemath.AddErr(current, value)
	if err != nil {
		return fmt.Errorf("out of limit amount: %w", err)
	}
	return s.PutOutOfLimit(total)
}

// Release takes value back out of the out of limit accumulator.
func (lim *Limiter) Release(s Store, value *uint256.Int) error {
	current, err := s.OutOfLimit()
	if err != nil {
		return err
	}
	total, err := safemath.SubErr(current, value)
	if err != nil {
		return fmt.Errorf("out of limit amount: %w", err)
	}
	return s.PutOutOfLimit(total)
}

// ResetSpent starts a new accounting window for dir.
func (lim *Limiter) ResetSpent(s Store, dir state.Direction) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %s", common.ErrConfigurationInvalid, dir)
	}
	l, err := s.Limits(dir)
	if err != nil {
		return err
	}
	l.Spent.Clear()
	return s.PutLimits(dir, l)
}

func (lim *Limiter) SetDailyLimit(s Store, dir state.Direction, v *uint256.Int) error {
	return lim.Update(s, dir, Change{DailyLimit: v})
}

func (lim *Limiter) SetMaxPerTx(s Store, dir state.Direction, v *uint256.Int) error {
	return lim.Update(s, dir, Change{MaxPerTx: v})
}

func (lim *Limiter) SetMinPerTx(s Store, dir state.Direction, v *uint256.Int) error {
	return lim.Update(s, dir, Change{MinPerTx: v})
}

// Change lists new bounds. Nil fields keep their current value.
type Change struct {
	DailyLimit *uint256.Int
	MaxPerTx   *uint256.Int
	MinPerTx   *uint256.Int
}

// Update applies every field of c at once. Only the resulting limits must
// be ordered, so bounds can be moved together in a single call.
func (lim *Limiter) Update(s Store, dir state.Direction, c Change) error {
	return lim.update(s, dir, func(l *state.Limits) {
		if c.DailyLimit != nil {
			l.DailyLimit = *c.DailyLimit
		}
		if c.MaxPerTx != nil {
			l.MaxPerTx = *c.MaxPerTx
		}
		if c.MinPerTx != nil {
			l.MinPerTx = *c.MinPerTx
		}
	})
}

// Init stores the initial limits of dir after validating them.
func (lim *Limiter) Init(s Store, dir state.Direction, l state.Limits) error {
	if err := l.Validate(&lim.fee); err != nil {
		return fmt.Errorf("%s limits: %w", dir, err)
	}
	return s.PutLimits(dir, l)
}

func (lim *Limiter) update(s Store, dir state.Direction, apply func(*state.Limits)) error {
	if !dir.Valid() {
		return fmt.Errorf("%w: %s", common.ErrConfigurationInvalid, dir)
	}
	l, err := s.Limits(dir)
	if err != nil {
		return err
	}
	apply(&l)
	if err := l.Validate(&lim.fee); err != nil {
		return fmt.Errorf("%s limits: %w", dir, err)
	}
	return s.PutLimits(dir, l)
}
