package linestream

import (
	"log/slog"
	"testing"
)

func TestLogger_Interface(t *testing.T) {
	var _ Logger = slog.Default()
}

// mockLogger records the last call made to it.
type mockLogger struct {
	debugCalled bool
	infoCalled  bool
	warnCalled  bool
	errorCalled bool
	lastMsg     string
	lastArgs    []any
}

func (l *mockLogger) Debug(msg string, args ...any) {
	l.debugCalled = true
	l.lastMsg, l.lastArgs = msg, args
}

func (l *mockLogger) Info(msg string, args ...any) {
	l.infoCalled = true
	l.lastMsg, l.lastArgs = msg, args
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.warnCalled = true
	l.lastMsg, l.lastArgs = msg, args
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.errorCalled = true
	l.lastMsg, l.lastArgs = msg, args
}

func TestTraceFunc(t *testing.T) {
	var records []string
	var tracer Tracer = TraceFunc(func(record string) {
		records = append(records, record)
	})

	tracer.Trace("C:a1 NOOP")
	tracer.Trace("S:a1 OK")

	if len(records) != 2 || records[0] != "C:a1 NOOP" || records[1] != "S:a1 OK" {
		t.Errorf("records = %q", records)
	}
}

func TestLogTracer(t *testing.T) {
	logger := &mockLogger{}
	tracer := LogTracer(logger)

	tracer.Trace("S:* OK ready")

	if !logger.debugCalled {
		t.Fatal("Debug not called")
	}
	if logger.infoCalled || logger.warnCalled || logger.errorCalled {
		t.Error("trace records must be logged at debug level only")
	}
	if logger.lastMsg != "trace" {
		t.Errorf("lastMsg = %s, want 'trace'", logger.lastMsg)
	}
	if len(logger.lastArgs) != 2 || logger.lastArgs[0] != "record" || logger.lastArgs[1] != "S:* OK ready" {
		t.Errorf("lastArgs = %v", logger.lastArgs)
	}
}
