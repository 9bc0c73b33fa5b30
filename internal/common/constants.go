package common

const (
	// RequiredMessageLength is the size of an encoded withdrawal message:
	// recipient(20) ‖ value(32) ‖ txHash(32) ‖ contract(20).
	RequiredMessageLength = 20 + 32 + 32 + 20

	// DefaultEventPageSize caps the number of events returned by a single query.
	DefaultEventPageSize = 100
)
