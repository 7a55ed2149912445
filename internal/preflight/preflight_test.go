package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"commissions/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commissions.db")

	if r := CheckDatabaseFile("db", path, true); !r.Passed {
		t.Fatalf("missing file in writable dir should pass: %s", r.Detail)
	}
	if r := CheckDatabaseFile("db", filepath.Join(dir, "missing", "x.db"), true); r.Passed {
		t.Fatal("missing parent directory should fail")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if r := CheckDatabaseFile("db", path, true); !r.Passed {
		t.Fatalf("existing file should pass: %s", r.Detail)
	}
	if r := CheckDatabaseFile("db", dir, false); r.Passed {
		t.Fatal("directory should fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.ImagesDir = filepath.Join(base, "images")
	cfg.Paths.DatabasePath = filepath.Join(base, "commissions.db")
	if err := os.MkdirAll(cfg.Paths.ImagesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	results := RunAll(&cfg)
	if len(results) != 2 {
		t.Fatalf("expected images and database checks, got %+v", results)
	}
	if err := FirstFailure(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}

	if err := os.MkdirAll(cfg.WebPDir(), 0o755); err != nil {
		t.Fatal(err)
	}
	if got := len(RunAll(&cfg)); got != 3 {
		t.Fatalf("expected derivative check once the directory exists, got %d results", got)
	}
}

func TestRequire(t *testing.T) {
	if err := Require(Result{Name: "ok", Passed: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Require(Result{Name: "Images directory", Detail: "/x (error: does not exist)"})
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}
