package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCodeRegistryReserveAndRelease(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewCodeRegistry(client, time.Hour)
	ctx := context.Background()

	ok, err := registry.Reserve(ctx, "ABC234")
	if err != nil || !ok {
		t.Fatalf("expected reservation to succeed, ok=%v err=%v", ok, err)
	}
	if !mr.Exists("session:code:ABC234") {
		t.Fatalf("expected reservation key in redis")
	}

	ok, err = registry.Reserve(ctx, "ABC234")
	if err != nil || ok {
		t.Fatalf("expected duplicate reservation to fail, ok=%v err=%v", ok, err)
	}

	if err := registry.Release(ctx, "ABC234"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("session:code:ABC234") {
		t.Fatalf("expected reservation key removed")
	}
}

func TestCodeRegistryReservationExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	registry := NewCodeRegistry(client, time.Minute)
	ctx := context.Background()

	if ok, _ := registry.Reserve(ctx, "ZZZ999"); !ok {
		t.Fatalf("expected reservation to succeed")
	}
	mr.FastForward(2 * time.Minute)
	if ok, _ := registry.Reserve(ctx, "ZZZ999"); !ok {
		t.Fatalf("expected expired reservation to be reservable")
	}
}
