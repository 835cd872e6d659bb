package main

import (
	"testing"
	"time"

	"github.com/forest6511/hygienectl/pkg/backup"
	"github.com/forest6511/hygienectl/pkg/hygiene"
	"github.com/forest6511/hygienectl/pkg/vault"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1m", 30 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"90s", 90 * time.Second, false},
		{"d", 0, true},
		{"xd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseDuration(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDuration(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		age  time.Duration
		want string
	}{
		{time.Hour, "today"},
		{3 * day, "3d"},
		{59 * day, "59d"},
		{90 * day, "3mo"},
		{800 * day, "2y"},
	}
	for _, tt := range tests {
		if got := formatAge(tt.age); got != tt.want {
			t.Errorf("formatAge(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "[░░░░░░░░░░░░░░░░░░░░]"},
		{50, "[██████████░░░░░░░░░░]"},
		{100, "[████████████████████]"},
		{150, "[████████████████████]"},
		{-10, "[░░░░░░░░░░░░░░░░░░░░]"},
	}
	for _, tt := range tests {
		if got := progressBar(tt.value, 100); got != tt.want {
			t.Errorf("progressBar(%d) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestMeter(t *testing.T) {
	if got := meter(0); got != "[□□□□□]" {
		t.Errorf("meter(0) = %q", got)
	}
	if got := meter(3); got != "[■■■□□]" {
		t.Errorf("meter(3) = %q", got)
	}
	if got := meter(5); got != "[■■■■■]" {
		t.Errorf("meter(5) = %q", got)
	}
}

func TestItemFlags(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	view := &vault.View{
		GeneratedAt: now,
		Reuse:       hygiene.ReuseMap{"reused": 2},
	}

	tests := []struct {
		name string
		item vault.VaultItem
		bits int
		want string
	}{
		{"clean", vault.VaultItem{ID: "a", CreatedAt: now}, 80, ""},
		{"weak", vault.VaultItem{ID: "a", CreatedAt: now}, hygiene.ListWeakEntropyBits - 1, "weak"},
		{"reused", vault.VaultItem{ID: "reused", CreatedAt: now}, 80, "reused x2"},
		{"old", vault.VaultItem{ID: "a", CreatedAt: now.Add(-200 * 24 * time.Hour)}, 80, "old"},
		{"all", vault.VaultItem{ID: "reused", CreatedAt: now.Add(-200 * 24 * time.Hour)}, 10, "weak,reused x2,old"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemFlags(tt.item, tt.bits, view); got != tt.want {
				t.Errorf("itemFlags() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateBackupFlags(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		stdout      bool
		password    bool
		keyFile     string
		expectError bool
	}{
		{name: "output file", output: "backup.enc"},
		{name: "stdout", stdout: true},
		{name: "neither", expectError: true},
		{name: "both", output: "backup.enc", stdout: true, expectError: true},
		{name: "key file and password", output: "backup.enc", password: true, keyFile: "k", expectError: true},
		{name: "key file", output: "backup.enc", keyFile: "k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldOutput, oldStdout, oldPassword, oldKey := backupOutput, backupStdout, backupBackupPassword, backupKeyFile
			defer func() {
				backupOutput, backupStdout, backupBackupPassword, backupKeyFile = oldOutput, oldStdout, oldPassword, oldKey
			}()
			backupOutput, backupStdout, backupBackupPassword, backupKeyFile = tt.output, tt.stdout, tt.password, tt.keyFile

			err := validateBackupFlags()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRestoreFlags(t *testing.T) {
	tests := []struct {
		name        string
		onConflict  string
		dryRun      bool
		verifyOnly  bool
		expectError bool
	}{
		{name: "default", onConflict: "error"},
		{name: "overwrite", onConflict: "overwrite"},
		{name: "skip unsupported", onConflict: "skip", expectError: true},
		{name: "dry run and verify", onConflict: "error", dryRun: true, verifyOnly: true, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldConflict, oldDry, oldVerify := restoreOnConflict, restoreDryRun, restoreVerifyOnly
			defer func() {
				restoreOnConflict, restoreDryRun, restoreVerifyOnly = oldConflict, oldDry, oldVerify
			}()
			restoreOnConflict, restoreDryRun, restoreVerifyOnly = tt.onConflict, tt.dryRun, tt.verifyOnly

			err := validateRestoreFlags()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseConflictMode(t *testing.T) {
	if mode, err := parseConflictMode("overwrite"); err != nil || mode != backup.ConflictOverwrite {
		t.Errorf("parseConflictMode(overwrite) = %v, %v", mode, err)
	}
	if mode, err := parseConflictMode("error"); err != nil || mode != backup.ConflictError {
		t.Errorf("parseConflictMode(error) = %v, %v", mode, err)
	}
	if _, err := parseConflictMode("merge"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
