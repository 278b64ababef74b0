package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestPgVector(t *testing.T) {
	cases := []struct {
		in   []float64
		want string
	}{
		{[]float64{0.1, 0.2, 0.3}, "[0.1,0.2,0.3]"},
		{[]float64{1, -2.5}, "[1,-2.5]"},
		{[]float64{}, "[]"},
		{nil, "[]"},
	}
	for _, tc := range cases {
		if got := pgVector(tc.in); got != tc.want {
			t.Errorf("pgVector(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNullIfEmpty(t *testing.T) {
	if got := nullIfEmpty(""); got != nil {
		t.Errorf("nullIfEmpty(\"\") = %v, want nil", got)
	}
	if got := nullIfEmpty("2026-08-26"); got != "2026-08-26" {
		t.Errorf("nullIfEmpty = %v", got)
	}
}

func TestPersistenceErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := &PersistenceError{Op: "save workout", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("PersistenceError does not unwrap to its cause")
	}
	msg := err.Error()
	if msg == "" || msg == inner.Error() {
		t.Errorf("Error() = %q, want wrapped message", msg)
	}
}
