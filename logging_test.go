package main

import (
	"log"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupLogging_RotatesPreviousRun(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	path := filepath.Join(t.TempDir(), "errdash.log")

	if err := os.WriteFile(path, []byte("previous run\n"), 0644); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	f, err := setupLogging(path)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	log.Print("current run")
	f.Close()

	old, err := os.ReadFile(path + ".1")
	if err != nil || string(old) != "previous run\n" {
		t.Fatalf("rotated log = %q %v", old, err)
	}
	cur, err := os.ReadFile(path)
	if err != nil || len(cur) == 0 {
		t.Fatalf("current log empty: %v", err)
	}
}

func TestSetupLogging_Stderr(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	f, err := setupLogging("-")
	if err != nil || f != nil {
		t.Fatalf("expected stderr logging, got %v %v", f, err)
	}
	if _, err := setupLogging(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
