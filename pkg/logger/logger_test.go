package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingWriterShiftsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.log")

	w, err := newRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	w.maxSize = 16
	t.Cleanup(func() { _ = w.Close() })

	for _, line := range []string{"first-line-xxxx\n", "second-line-xxx\n", "third-line-xxxx\n"} {
		if _, err := w.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if !bytes.Contains(current, []byte("third")) {
		t.Fatalf("current file should hold newest line, got %q", current)
	}
	backup1, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("read backup 1: %v", err)
	}
	if !bytes.Contains(backup1, []byte("second")) {
		t.Fatalf("unexpected backup 1 %q", backup1)
	}
	backup2, err := os.ReadFile(path + ".2")
	if err != nil {
		t.Fatalf("read backup 2: %v", err)
	}
	if !bytes.Contains(backup2, []byte("first")) {
		t.Fatalf("unexpected backup 2 %q", backup2)
	}
}

func TestInitWritesAuditToFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "audit.log")
	logPath := filepath.Join(dir, "app.log")

	err := Init(Config{
		Level:       "debug",
		Format:      "text",
		OutputPaths: []string{logPath},
		Audit:       AuditConfig{Enabled: true, Path: auditPath},
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = Sync() })

	Named("mirror").Debug("page fetched")
	Audit().Info("tool_invoked")

	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	app, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read app log: %v", err)
	}
	if !strings.Contains(string(app), "component=mirror") {
		t.Fatalf("expected component attribute, got %q", app)
	}
	audit, err := os.ReadFile(auditPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	if !strings.Contains(string(audit), "tool_invoked") {
		t.Fatalf("expected audit entry, got %q", audit)
	}
}
