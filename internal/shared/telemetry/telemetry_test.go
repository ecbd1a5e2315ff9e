package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestClosers_ShutdownNewestFirst(t *testing.T) {
	var order []string
	first := errors.New("first failed")
	cs := closers{
		func(context.Context) error { order = append(order, "meters"); return first },
		func(context.Context) error { order = append(order, "tracer"); return nil },
		func(context.Context) error { order = append(order, "metrics server"); return nil },
	}

	err := cs.shutdown(context.Background())
	if !errors.Is(err, first) {
		t.Errorf("shutdown() error = %v, want it to wrap %v", err, first)
	}
	if len(order) != 3 || order[0] != "metrics server" || order[2] != "meters" {
		t.Errorf("shutdown order = %v", order)
	}
}

func TestClosers_Empty(t *testing.T) {
	var cs closers
	if err := cs.shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() on nothing = %v, want nil", err)
	}
}
