package auth

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := VerifyPassword(hash, "battery staple"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if cost, _ := bcrypt.Cost([]byte(hash)); cost != bcrypt.MinCost {
		t.Fatalf("cost = %d", cost)
	}
}

func TestHashPasswordRejectsBadInput(t *testing.T) {
	if _, err := HashPassword("", bcrypt.MinCost); err == nil {
		t.Fatal("empty password accepted")
	}
	if _, err := HashPassword("x", bcrypt.MaxCost+1); err == nil {
		t.Fatal("out of range cost accepted")
	}
}

func TestNewTokenUsesSixtyFourBytes(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{0xab}, tokenBytes))
	tok, err := newToken(src)
	if err != nil {
		t.Fatalf("newToken: %v", err)
	}
	if tok != strings.Repeat("ab", tokenBytes) {
		t.Fatalf("unexpected token %q", tok)
	}
	if _, err := newToken(bytes.NewReader(make([]byte, tokenBytes-1))); err == nil {
		t.Fatal("short entropy source accepted")
	}
}
