package validator

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/eigerco/tollbridge/internal/common"
	"github.com/eigerco/tollbridge/internal/crypto"
)

// Set is the live view of the validator set. Implementations must return
// current values on every call.
type Set interface {
	IsValidator(addr crypto.Address) bool
	Threshold() uint64
}

var _ Set = (*Registry)(nil)

// Registry is a mutable, thread-safe validator set keeping
// 1 ≤ threshold ≤ number of validators.
type Registry struct {
	mu        sync.RWMutex
	members   crypto.AddressSet
	threshold uint64
}

func NewRegistry(threshold uint64, validators ...crypto.Address) (*Registry, error) {
	members := crypto.NewAddressSet(validators...)
	if err := checkThreshold(threshold, len(members)); err != nil {
		return nil, err
	}
	return &Registry{members: members, threshold: threshold}, nil
}

func (r *Registry) IsValidator(addr crypto.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members.Has(addr)
}

func (r *Registry) Threshold() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

// SetThreshold changes the number of confirmations required from now on.
func (r *Registry) SetThreshold(threshold uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := checkThreshold(threshold, len(r.members)); err != nil {
		return err
	}
	r.threshold = threshold
	return nil
}

func (r *Registry) AddValidator(addr crypto.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members.Add(addr)
}

// RemoveValidator fails if the remaining validators could not reach the threshold.
func (r *Registry) RemoveValidator(addr crypto.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.members.Has(addr) {
		return nil
	}
	if err := checkThreshold(r.threshold, len(r.members)-1); err != nil {
		return err
	}
	r.members.Remove(addr)
	return nil
}

// Validators returns the members ordered by address.
func (r *Registry) Validators() []crypto.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]crypto.Address, 0, len(r.members))
	for a := range r.members {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func checkThreshold(threshold uint64, members int) error {
	if threshold == 0 || threshold > uint64(members) {
		return fmt.Errorf("%w: threshold %d with %d validators", common.ErrConfigurationInvalid, threshold, members)
	}
	return nil
}
