package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestNewRunID(t *testing.T) {
	id1 := NewRunID()
	id2 := NewRunID()

	if len(id1) != 26 {
		t.Errorf("expected 26 char ID, got %d: %s", len(id1), id1)
	}
	if id1 == id2 {
		t.Error("run IDs should be unique")
	}
}

func TestWithRunID(t *testing.T) {
	ctx := context.Background()

	ctx1 := WithRunID(ctx, "run-123")
	if got := GetRunID(ctx1); got != "run-123" {
		t.Errorf("expected 'run-123', got '%s'", got)
	}

	ctx2 := WithRunID(ctx, "")
	if id := GetRunID(ctx2); len(id) != 26 {
		t.Errorf("expected generated ID, got %q", id)
	}
}

func TestGetRunIDEmpty(t *testing.T) {
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("expected empty string for context without ID, got '%s'", got)
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	FromContext(WithRunID(context.Background(), "r1"), "sim").Info("start", nil)

	var e Event
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("bad event: %v", err)
	}
	if e.Run != "r1" || e.Component != "sim" {
		t.Errorf("unexpected event %+v", e)
	}
}
