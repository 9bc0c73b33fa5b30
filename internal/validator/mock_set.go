package validator

import (
	"github.com/stretchr/testify/mock"

	"github.com/eigerco/tollbridge/internal/crypto"
)

func NewSetMock() *SetMock {
	return &SetMock{}
}

type SetMock struct {
	mock.Mock
}

func (s *SetMock) IsValidator(addr crypto.Address) bool {
	args := s.MethodCalled("IsValidator", addr)
	return args.Bool(0)
}

func (s *SetMock) Threshold() uint64 {
	args := s.MethodCalled("Threshold")
	return args.Get(0).(uint64)
}
