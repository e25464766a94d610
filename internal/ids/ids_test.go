package ids

import (
	"testing"
	"time"
)

func TestNewIsMonotonicAndValid(t *testing.T) {
	now := time.Now()
	prev := NewAt(now)
	for i := 0; i < 100; i++ {
		next := NewAt(now)
		if next <= prev {
			t.Fatalf("ids not increasing: %s then %s", prev, next)
		}
		if !Valid(next) {
			t.Fatalf("generated id %q reported invalid", next)
		}
		prev = next
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "abc", "not-a-ulid-not-a-ulid-xxxx", "01ARZ3NDEKTSV4RRFFQ69G5FA!"} {
		if Valid(s) {
			t.Fatalf("Valid(%q) = true", s)
		}
	}
}
