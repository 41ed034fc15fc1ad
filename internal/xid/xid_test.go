package xid

import (
	"strings"
	"testing"
	"time"
)

func TestNewIncludesPrefix(t *testing.T) {
	id := New("ord")
	if !strings.HasPrefix(id, "ord-") {
		t.Fatalf("expected ord- prefix, got %s", id)
	}
}

func TestOrderNumberFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	number := OrderNumber(at)

	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		t.Fatalf("expected ORD-<millis>-<suffix>, got %s", number)
	}
	if parts[0] != "ORD" {
		t.Fatalf("expected ORD prefix, got %s", parts[0])
	}
	if len(parts[2]) != 6 {
		t.Fatalf("expected 6-char suffix, got %s", parts[2])
	}
	if parts[2] != strings.ToUpper(parts[2]) {
		t.Fatalf("expected uppercase suffix, got %s", parts[2])
	}
}

func TestOrderNumberVaries(t *testing.T) {
	at := time.Now().UTC()
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[OrderNumber(at)] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected random suffixes to differ")
	}
}
