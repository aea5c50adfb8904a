package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestGlobalUUIDIsStable(t *testing.T) {
	first := GlobalUUID("home")
	if first == uuid.Nil {
		t.Fatal("expected non-nil uuid")
	}
	if again := GlobalUUID(" HOME "); again != first {
		t.Fatalf("expected normalized kind to map to %s, got %s", first, again)
	}
	if other := GlobalUUID("footer"); other == first {
		t.Fatal("expected different kinds to produce different ids")
	}
}

func TestUUIDBlankKey(t *testing.T) {
	if got := UUID("  "); got != uuid.Nil {
		t.Fatalf("expected nil uuid for blank key, got %s", got)
	}
}
