package state

import (
	"fmt"
	"strings"
)

// Direction selects which of the two limit sets applies to a value.
type Direction uint8

const (
	// ForeignToHome covers the execution of affirmed foreign deposits.
	ForeignToHome Direction = iota
	// HomeToForeign covers user initiated withdrawal requests.
	HomeToForeign
)

var Directions = []Direction{ForeignToHome, HomeToForeign}

func (d Direction) String() string {
	switch d {
	case ForeignToHome:
		return "foreign-to-home"
	case HomeToForeign:
		return "home-to-foreign"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

func (d Direction) Valid() bool {
	return d == ForeignToHome || d == HomeToForeign
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "foreign-to-home", "foreign", "inbound":
		return ForeignToHome, nil
	case "home-to-foreign", "home", "outbound":
		return HomeToForeign, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}
