package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
	"github.com/eigerco/tollbridge/internal/safemath"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Ledger moves value on the home chain token.
type Ledger interface {
	// Credit mints amount to the account. Requires minting rights.
	Credit(ctx context.Context, to crypto.Address, amount *uint256.Int) error
	Transfer(ctx context.Context, from, to crypto.Address, amount *uint256.Int) error
	Burn(ctx context.Context, from crypto.Address, amount *uint256.Int) error
}

var _ Ledger = (*Memory)(nil)

// Memory is an in-process token ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[crypto.Address]uint256.Int
	supply   uint256.Int
	canMint  bool
}

func NewMemory() *Memory {
	return &Memory{
		balances: make(map[crypto.Address]uint256.Int),
		canMint:  true,
	}
}

// RevokeMinting makes every following Credit fail with ErrInsufficientAuthority.
func (m *Memory) RevokeMinting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canMint = false
}

func (m *Memory) GrantMinting() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.canMint = true
}

func (m *Memory) Credit(ctx context.Context, to crypto.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.canMint {
		return fmt.Errorf("credit %s: %w", to, common.ErrInsufficientAuthority)
	}
	return m.mint(to, amount)
}

// Fund mints without checking minting rights, to seed balances.
func (m *Memory) Fund(to crypto.Address, amount *uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mint(to, amount)
}

func (m *Memory) Transfer(ctx context.Context, from, to crypto.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	fromBalance := m.balances[from]
	remaining, err := debit(&fromBalance, amount)
	if err != nil {
		return fmt.Errorf("transfer from %s: %w", from, err)
	}
	toBalance := m.balances[to]
	if from == to {
		toBalance = *remaining
	}
	credited, err := safemath.AddErr(&toBalance, amount)
	if err != nil {
		return fmt.Errorf("transfer to %s: %w", to, err)
	}
	m.balances[from] = *remaining
	m.balances[to] = *credited
	return nil
}

func (m *Memory) Burn(ctx context.Context, from crypto.Address, amount *uint256.Int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	balance := m.balances[from]
	remaining, err := debit(&balance, amount)
	if err != nil {
		return fmt.Errorf("burn from %s: %w", from, err)
	}
	supply, err := safemath.SubErr(&m.supply, amount)
	if err != nil {
		return fmt.Errorf("burn from %s: %w", from, err)
	}
	m.balances[from] = *remaining
	m.supply = *supply
	return nil
}

func (m *Memory) BalanceOf(addr crypto.Address) *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	balance := m.balances[addr]
	return balance.Clone()
}

func (m *Memory) TotalSupply() *uint256.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply.Clone()
}

func (m *Memory) mint(to crypto.Address, amount *uint256.Int) error {
	supply, err := safemath.AddErr(&m.supply, amount)
	if err != nil {
		return fmt.Errorf("mint to %s: %w", to, err)
	}
	balance := m.balances[to]
	credited, err := safemath.AddErr(&balance, amount)
	if err != nil {
		return fmt.Errorf("mint to %s: %w", to, err)
	}
	m.supply = *supply
	m.balances[to] = *credited
	return nil
}

func debit(balance, amount *uint256.Int) (*uint256.Int, error) {
	if balance.Lt(amount) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, balance.Dec(), amount.Dec())
	}
	return new(uint256.Int).Sub(balance, amount), nil
}
