package cli

import (
	"bytes"
	"errdash/dashboard"
	"errdash/models"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestApplyFilterArgs(t *testing.T) {
	f, err := applyFilterArgs(dashboard.Filters{}, []string{"severity", "HIGH"})
	if err != nil || f.Severity != models.SeverityHigh {
		t.Fatalf("severity filter: %+v %v", f, err)
	}
	f, err = applyFilterArgs(f, []string{"component", "Payment", "Gateway"})
	if err != nil || f.Component != "Payment Gateway" || f.Severity != models.SeverityHigh {
		t.Fatalf("component filter: %+v %v", f, err)
	}
	if _, err := applyFilterArgs(f, []string{"severity", "urgent"}); err == nil {
		t.Fatalf("expected invalid severity error")
	}
	if _, err := applyFilterArgs(f, []string{"color", "red"}); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := applyFilterArgs(f, []string{"search"}); err == nil {
		t.Fatalf("expected missing value error")
	}
	f, err = applyFilterArgs(f, []string{"clear"})
	if err != nil || f != (dashboard.Filters{}) {
		t.Fatalf("clear: %+v %v", f, err)
	}
}

func TestPrintCards_OnlyVisible(t *testing.T) {
	batch := []models.ErrorRecord{
		{ID: 1, ErrorType: "DatabaseConnection", Severity: "high", Status: "open", Source: "inwise"},
		{ID: 2, ErrorType: "SlowQuery", Severity: "low", Status: "open", Source: "manual"},
	}
	var buf bytes.Buffer
	printCards(&buf, "open", dashboard.Filters{Severity: "high"}.Apply(batch))
	out := buf.String()
	if !strings.Contains(out, "DatabaseConnection") || strings.Contains(out, "SlowQuery") {
		t.Fatalf("unexpected listing:\n%s", out)
	}
	if !strings.Contains(out, "1 of 2 shown (open)") {
		t.Fatalf("missing summary:\n%s", out)
	}
}

func TestPrintDetail(t *testing.T) {
	var buf bytes.Buffer
	printDetail(&buf, dashboard.NewDetail(models.ErrorRecord{ID: 4, ErrorType: "X", Status: "resolved", Resolution: "patched"}))
	out := buf.String()
	for _, want := range []string{dashboard.NoStackTrace, dashboard.NoImpact, "patched"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Use 'resolve'") {
		t.Fatalf("resolved record must not offer resolve")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("a very long error type", 10); got != "a very ..." {
		t.Fatalf("truncate = %q", got)
	}
}

func TestResolveServer(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("ERRDASH_CONFIG", "")

	got, err := ResolveServer("http://10.0.0.5:5000", "http://fallback")
	if err != nil || got != "http://10.0.0.5:5000" {
		t.Fatalf("explicit url: %q %v", got, err)
	}

	got, err = ResolveServer("", "http://127.0.0.1:5000")
	if err != nil || got != "http://127.0.0.1:5000" {
		t.Fatalf("default profile: %q %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(home, ".errdash", "config.yaml")); err != nil {
		t.Fatalf("expected profile file to be written: %v", err)
	}

	cfg, err := LoadConfig("http://127.0.0.1:5000")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if err := cfg.AddServer("staging", "http://staging:5000", "Staging"); err != nil {
		t.Fatalf("AddServer: %v", err)
	}

	got, err = ResolveServer("staging", "http://fallback")
	if err != nil || got != "http://staging:5000" {
		t.Fatalf("named profile: %q %v", got, err)
	}
	if _, err := ResolveServer("prod", "http://fallback"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
}

func TestPrintBanner_FitsAlert(t *testing.T) {
	var buf bytes.Buffer
	printBanner(&buf, "Synchronization completed successfully")
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "Synchronization completed successfully") {
		t.Fatalf("title missing: %q", lines[1])
	}

	buf.Reset()
	long := strings.Repeat("x", 80)
	printBanner(&buf, long)
	if !strings.Contains(buf.String(), "║ "+long+" ║") {
		t.Fatalf("long title must widen the box:\n%s", buf.String())
	}
}

func TestLoadConfig_EnvPathAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profiles.yaml")
	t.Setenv("ERRDASH_CONFIG", path)

	cfg, err := LoadConfig("http://127.0.0.1:5000")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DefaultServer != "local" {
		t.Fatalf("default server = %q", cfg.DefaultServer)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected %s to be written: %v", path, err)
	}
	if err := cfg.AddServer("bad", "staging:5000", ""); err == nil {
		t.Fatalf("expected relative URL to be rejected")
	}
	if got := cfg.ServerNames(); len(got) != 1 || got[0] != "local" {
		t.Fatalf("server names = %v", got)
	}
}

func TestPrintDiagnostic(t *testing.T) {
	var buf bytes.Buffer
	printDiagnostic(&buf, &models.DiagnosticLog{ID: 3, Level: "WARN", Source: "load", Message: "Inconsistent error record", Detail: "id=3"})
	out := buf.String()
	for _, want := range []string{"#3", "[WARN] load", "Inconsistent error record", "Detail:  id=3"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Stack:") {
		t.Fatalf("empty stack must be omitted")
	}
}
