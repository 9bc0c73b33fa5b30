package state

import "fmt"

// Namespace separates affirmation records from signature records.
type Namespace byte

const (
	Affirmations Namespace = iota + 1
	Signatures
)

func (n Namespace) String() string {
	switch n {
	case Affirmations:
		return "affirmations"
	case Signatures:
		return "signatures"
	default:
		return fmt.Sprintf("namespace(%d)", byte(n))
	}
}

type Status uint8

const (
	Pending Status = iota
	Completed
)

func (s Status) String() string {
	if s == Completed {
		return "completed"
	}
	return "pending"
}

// Record tracks how many distinct validators acted on a key and whether
// the key has completed. A completed record never changes again.
type Record struct {
	Status Status
	Count  uint64
}

func (r Record) IsCompleted() bool {
	return r.Status == Completed
}

// Exists reports whether at least one validator acted on the key.
func (r Record) Exists() bool {
	return r.Count > 0
}
