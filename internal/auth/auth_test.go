package auth

import (
	"context"
	"testing"
)

func TestNewStaticAPIKeyValidatorParsesEntries(t *testing.T) {
	validator, err := NewStaticAPIKeyValidator("k1:alice, k2:bob")
	if err != nil {
		t.Fatalf("NewStaticAPIKeyValidator() error = %v", err)
	}
	identity, ok := validator.Validate(context.Background(), "k1")
	if !ok || identity.Name != "alice" {
		t.Fatalf("Validate(k1) = %+v, %v", identity, ok)
	}
	if _, ok := validator.Validate(context.Background(), "nope"); ok {
		t.Fatal("Validate(nope) should fail")
	}
}

func TestNewStaticAPIKeyValidatorRejectsMalformedEntries(t *testing.T) {
	for _, spec := range []string{"k1", "k1:", ":alice", "k1:alice:extra"} {
		if _, err := NewStaticAPIKeyValidator(spec); err == nil {
			t.Fatalf("NewStaticAPIKeyValidator(%q) expected error", spec)
		}
	}
}
