package ledger

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/mock"

	"github.com/eigerco/tollbridge/internal/crypto"
)

func NewLedgerMock() *LedgerMock {
	return &LedgerMock{}
}

type LedgerMock struct {
	mock.Mock
}

func (l *LedgerMock) Credit(ctx context.Context, to crypto.Address, amount *uint256.Int) error {
	args := l.MethodCalled("Credit", ctx, to, amount)
	return args.Error(0)
}

func (l *LedgerMock) Transfer(ctx context.Context, from, to crypto.Address, amount *uint256.Int) error {
	args := l.MethodCalled("Transfer", ctx, from, to, amount)
	return args.Error(0)
}

func (l *LedgerMock) Burn(ctx context.Context, from crypto.Address, amount *uint256.Int) error {
	args := l.MethodCalled("Burn", ctx, from, amount)
	return args.Error(0)
}
