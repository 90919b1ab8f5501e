package domain

import "strings"

// Side indicates whether an order is a bid (buy) or ask (sell).
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// ParseSide converts a side token to a Side, ignoring case.
// An empty token is a missing field; anything else unrecognised is an
// UnknownSideError.
func ParseSide(token string) (Side, error) {
	t := strings.TrimSpace(token)
	if t == "" {
		return "", &ValidationError{Message: "side is required"}
	}
	switch Side(strings.ToLower(t)) {
	case SideBid:
		return SideBid, nil
	case SideAsk:
		return SideAsk, nil
	}
	return "", &UnknownSideError{Side: token}
}

// Opposite returns the side an order of this side matches against.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

func (s Side) String() string {
	return string(s)
}
