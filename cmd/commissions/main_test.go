package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"commissions/internal/apperr"
	"commissions/internal/catalog"
	"commissions/internal/imaging"
)

type cliEnv struct {
	baseDir    string
	configPath string
	imagesDir  string
}

func setupCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))

	env := &cliEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "commissions.toml"),
		imagesDir:  filepath.Join(base, "images"),
	}
	contents := fmt.Sprintf(`[paths]
images_dir = %q
database_path = %q

[pipeline]
workers = 2
write_index = true

[logging]
level = "error"
`, env.imagesDir, filepath.Join(base, "data", "commissions.db"))
	if err := os.WriteFile(env.configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := e.runWithContext(t, args...)
	return out, err
}

func (e *cliEnv) runWithContext(t *testing.T, args ...string) (string, *commandContext, error) {
	t.Helper()
	cmd, ctx := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := execute(cmd, ctx)
	return out.String(), ctx, err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func (e *cliEnv) characters(t *testing.T) []catalog.Character {
	t.Helper()
	var characters []catalog.Character
	if err := json.Unmarshal([]byte(e.mustRun(t, "--json", "character", "list")), &characters); err != nil {
		t.Fatalf("decode characters: %v", err)
	}
	return characters
}

func TestCharacterCommands(t *testing.T) {
	env := setupCLIEnv(t)

	out := env.mustRun(t, "character", "add", "Aria")
	if !strings.Contains(out, `Character "Aria" created.`) {
		t.Fatalf("unexpected add output %q", out)
	}
	env.mustRun(t, "character", "add", "Bram")
	env.mustRun(t, "character", "add", "--status", "stale", "Cato")

	characters := env.characters(t)
	if len(characters) != 3 {
		t.Fatalf("expected 3 characters, got %d", len(characters))
	}
	ids := map[string]int64{}
	for _, c := range characters {
		ids[c.Name] = c.ID
	}

	env.mustRun(t, "character", "reorder",
		"--active", fmt.Sprintf("%d,%d", ids["Bram"], ids["Aria"]),
		"--stale", fmt.Sprint(ids["Cato"]),
	)
	characters = env.characters(t)
	if characters[0].Name != "Bram" || characters[0].SortOrder != 1 || characters[2].Name != "Cato" {
		t.Fatalf("unexpected order after reorder: %+v", characters)
	}

	out = env.mustRun(t, "character", "list")
	if !strings.Contains(out, "Bram") || !strings.Contains(out, "Commissions") {
		t.Fatalf("expected table output, got %q", out)
	}
}

func TestMutationFailureExitsNonZero(t *testing.T) {
	env := setupCLIEnv(t)

	out, err := env.run(t, "--json", "character", "add", "   ")
	if err == nil {
		t.Fatal("expected blank name to fail")
	}
	var result apperr.Result
	if jsonErr := json.Unmarshal([]byte(out), &result); jsonErr != nil {
		t.Fatalf("decode result: %v (%q)", jsonErr, out)
	}
	if result.Status != apperr.StatusError || result.Message != "Character name is required." {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := env.run(t, "character", "delete", "nope"); err == nil {
		t.Fatal("expected invalid id to fail")
	}
	if _, err := env.run(t, "commission", "delete", "99"); err == nil {
		t.Fatal("expected missing commission to fail")
	}
}

func TestStoreClosedAfterFailedCommand(t *testing.T) {
	env := setupCLIEnv(t)

	_, ctx, err := env.runWithContext(t, "commission", "delete", "99")
	if err == nil {
		t.Fatal("expected missing commission to fail")
	}
	if ctx.store != nil {
		t.Fatal("catalog should be closed after a failed command")
	}

	_, ctx, err = env.runWithContext(t, "character", "add", "Aria")
	if err != nil {
		t.Fatalf("add character: %v", err)
	}
	if ctx.store != nil {
		t.Fatal("catalog should be closed after a successful command")
	}
}

func TestCommissionCommands(t *testing.T) {
	env := setupCLIEnv(t)
	env.mustRun(t, "character", "add", "Aria")
	id := env.characters(t)[0].ID

	out := env.mustRun(t, "commission", "add",
		"--character", fmt.Sprint(id),
		"--file", "2024-05_aria.jpg",
		"--link", "https://example.com/a",
		"--link", "  ",
	)
	if !strings.Contains(out, `Commission "2024-05_aria.jpg" added to Aria.`) {
		t.Fatalf("unexpected add output %q", out)
	}

	var commissions []catalog.Commission
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "commission", "list")), &commissions); err != nil {
		t.Fatalf("decode commissions: %v", err)
	}
	if len(commissions) != 1 || len(commissions[0].Links) != 1 {
		t.Fatalf("unexpected commissions %+v", commissions)
	}

	env.mustRun(t, "commission", "update", fmt.Sprint(commissions[0].ID),
		"--character", fmt.Sprint(id),
		"--file", "2024-05_aria_v2.jpg",
		"--hidden",
	)
	env.mustRun(t, "character", "delete", fmt.Sprint(id))

	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "commission", "list")), &commissions); err != nil {
		t.Fatalf("decode commissions: %v", err)
	}
	if len(commissions) != 0 {
		t.Fatalf("character delete should remove its commissions, got %+v", commissions)
	}
}

func TestConvertCommandReportsEmptyRun(t *testing.T) {
	env := setupCLIEnv(t)

	var report imaging.BatchReport
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "convert")), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Total() != 0 || report.RunID == "" {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := os.Stat(filepath.Join(env.imagesDir, "webp", "index.json")); err != nil {
		t.Fatalf("expected index to be written: %v", err)
	}

	out := env.mustRun(t, "pipeline", "index")
	if !strings.Contains(out, report.RunID) {
		t.Fatalf("index output should name the run, got %q", out)
	}
}

func TestDBCheck(t *testing.T) {
	env := setupCLIEnv(t)
	env.mustRun(t, "character", "add", "Aria")

	var report checkReport
	if err := json.Unmarshal([]byte(env.mustRun(t, "--json", "db", "check")), &report); err != nil {
		t.Fatalf("decode check report: %v", err)
	}
	if !report.OK || report.Health == nil || report.Health.Characters != 1 {
		t.Fatalf("unexpected check report %+v", report)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLIEnv(t)
	target := filepath.Join(env.baseDir, "sample", "config.toml")

	out := env.mustRun(t, "config", "init", "--path", target)
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output %q", out)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out = env.mustRun(t, "config", "validate")
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.imagesDir) {
		t.Fatalf("unexpected validate output %q", out)
	}
}
