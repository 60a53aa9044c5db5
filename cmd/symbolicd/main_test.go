package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"symbolicd/internal/validator"
)

func TestReadSourceFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.py")
	if err := os.WriteFile(path, []byte("def f(x):\n    return x\n"), 0o644); err != nil {
		t.Fatalf("write sample file: %v", err)
	}

	got, err := readSource(path)
	if err != nil {
		t.Fatalf("readSource failed: %v", err)
	}
	if !strings.Contains(got, "def f(x):") {
		t.Fatalf("unexpected source content: %q", got)
	}
}

func TestReadSourceMissingFile(t *testing.T) {
	if _, err := readSource(filepath.Join(t.TempDir(), "missing.py")); err == nil {
		t.Fatal("expected an error reading a nonexistent file")
	}
}

func TestValidateOnlyCmdRejectsPolicyViolation(t *testing.T) {
	configPath = ""
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	src := "import os\n\ndef f():\n    return os.system('ls')\n"
	report := validator.Validate(context.Background(), src, cfg)
	if report.OK {
		t.Fatal("expected validation to reject an os.system call")
	}
}
