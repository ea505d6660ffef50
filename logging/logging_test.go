package logging

import (
	"context"
	"strings"
	"testing"
)

func TestLevelString(t *testing.T) {
	cases := []struct {
		level Level
		want  string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{FatalLevel, "FATAL"},
		{Level(99), "UNKNOWN"},
	}

	for _, tc := range cases {
		if got := tc.level.String(); got != tc.want {
			t.Errorf("Level(%d).String() = %q, want %q", tc.level, got, tc.want)
		}
	}
}

func TestFormatMessageIncludesFields(t *testing.T) {
	l := NewDefaultLoggerNoColor()
	bound := l.WithFields(Fields{"component": "test"}).(*DefaultLogger)

	msg := bound.formatMessage(InfoLevel, nil, "hello", Fields{"n": 3})

	if !strings.Contains(msg, "[INFO] hello") {
		t.Errorf("message missing level prefix: %q", msg)
	}
	if !strings.Contains(msg, "component") || !strings.Contains(msg, "test") {
		t.Errorf("message missing preset field: %q", msg)
	}
	if !strings.Contains(msg, "n") {
		t.Errorf("message missing call-site field: %q", msg)
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	parent := NewDefaultLoggerNoColor()
	parent.WithFields(Fields{"a": 1})

	if len(parent.fields) != 0 {
		t.Error("WithFields mutated the parent logger")
	}
}

func TestContextFields(t *testing.T) {
	ctx := ContextWithFields(context.Background(), Fields{"request": "r1"})

	fields, ok := FieldsFromContext(ctx)
	if !ok {
		t.Fatal("expected fields in context")
	}
	if fields["request"] != "r1" {
		t.Errorf("fields = %+v", fields)
	}

	if _, ok := FieldsFromContext(context.Background()); ok {
		t.Error("expected no fields in a fresh context")
	}
}

func TestSetGlobalLoggerNilFallsBackToNoOp(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	SetGlobalLogger(nil)
	if _, ok := GetGlobalLogger().(*NoOpLogger); !ok {
		t.Errorf("expected NoOpLogger, got %T", GetGlobalLogger())
	}

	// Package-level calls must not panic against the no-op logger
	Debug("dropped")
	Info("dropped")
	Warn("dropped")
}
