package memory

import (
	"context"
	"testing"
)

func TestCodeRegistryReserveAndRelease(t *testing.T) {
	registry := NewCodeRegistry()
	ctx := context.Background()

	ok, err := registry.Reserve(ctx, "ABC234")
	if err != nil || !ok {
		t.Fatalf("expected first reservation to succeed, ok=%v err=%v", ok, err)
	}
	ok, err = registry.Reserve(ctx, "ABC234")
	if err != nil || ok {
		t.Fatalf("expected duplicate reservation to fail, ok=%v err=%v", ok, err)
	}

	if err := registry.Release(ctx, "ABC234"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = registry.Reserve(ctx, "ABC234")
	if err != nil || !ok {
		t.Fatalf("expected released code to be reservable again, ok=%v err=%v", ok, err)
	}
}
