package observability

import (
	"context"
	"errors"
	"testing"
)

func TestShutdownLIFO(t *testing.T) {
	var order []string
	s := &ShutdownCoordinator{}

	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.Register(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{"third", "second", "first"}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("shutdown order = %v, want %v", order, want)
			break
		}
	}
}

func TestShutdownCollectsErrors(t *testing.T) {
	s := &ShutdownCoordinator{}
	ran := false

	s.Register("ok", func(context.Context) error {
		ran = true
		return nil
	})
	s.Register("broken", func(context.Context) error {
		return errors.New("boom")
	})

	err := s.Shutdown(context.Background())
	if err == nil {
		t.Fatal("Shutdown swallowed a handler error")
	}
	if !ran {
		t.Error("a failing handler stopped the remaining handlers")
	}
}

func TestShutdownEmpty(t *testing.T) {
	s := &ShutdownCoordinator{}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown with no handlers = %v", err)
	}
}
