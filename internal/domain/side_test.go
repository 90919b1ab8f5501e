package domain

import (
	"errors"
	"testing"
)

func TestParseSide(t *testing.T) {
	tests := []struct {
		token string
		want  Side
	}{
		{"bid", SideBid},
		{"ask", SideAsk},
		{"BID", SideBid},
		{"Ask", SideAsk},
		{" bid ", SideBid},
	}
	for _, tt := range tests {
		got, err := ParseSide(tt.token)
		if err != nil {
			t.Errorf("ParseSide(%q) unexpected error: %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSide(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestParseSide_Empty(t *testing.T) {
	_, err := ParseSide("")
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestParseSide_Unknown(t *testing.T) {
	_, err := ParseSide("asdf")
	var sideErr *UnknownSideError
	if !errors.As(err, &sideErr) {
		t.Fatalf("expected UnknownSideError, got %v", err)
	}
	if sideErr.Side != "asdf" {
		t.Errorf("Side = %q, want %q", sideErr.Side, "asdf")
	}
}

func TestSide_StringAndOpposite(t *testing.T) {
	if SideBid.String() != "bid" || SideAsk.String() != "ask" {
		t.Errorf("unexpected String(): %q %q", SideBid, SideAsk)
	}
	if SideBid.Opposite() != SideAsk || SideAsk.Opposite() != SideBid {
		t.Error("Opposite() should swap sides")
	}
}
