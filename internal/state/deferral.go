package state

import (
	"github.com/holiman/uint256"

	"github.com/eigerco/tollbridge/internal/crypto"
)

// Deferral is a completed foreign deposit that did not fit in the daily
// limit. Remediated deferrals are kept so the tx hash stays blocked.
type Deferral struct {
	Recipient  crypto.Address
	Value      uint256.Int
	TxHash     crypto.Hash
	Remediated bool
}

// Outstanding reports whether the deferral still awaits remediation.
func (d Deferral) Outstanding() bool {
	return !d.Remediated
}

// TollConfig is the fixed fee deducted from every admitted deposit and the
// address it is paid to.
type TollConfig struct {
	Fee         uint256.Int
	Destination crypto.Address
}
