package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentWorker,
		Handler:   slog.NewJSONHandler(&buf, nil),
	})

	logger.Info("backup started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v, want %q", record[FieldComponent], ComponentWorker)
	}
	if record["msg"] != "backup started" {
		t.Errorf("msg = %v", record["msg"])
	}
}

func TestWithComponentRebinds(t *testing.T) {
	logger := New(Config{Component: ComponentApp})

	rebound := logger.WithComponent(ComponentAMQP)
	if rebound.Component() != ComponentAMQP {
		t.Errorf("component = %q, want %q", rebound.Component(), ComponentAMQP)
	}
	if logger.Component() != ComponentApp {
		t.Errorf("original logger mutated to %q", logger.Component())
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	logger := New(Config{})
	if logger.Component() != ComponentApp {
		t.Errorf("component = %q, want %q", logger.Component(), ComponentApp)
	}
}
