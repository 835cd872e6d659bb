package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/forest6511/hygienectl/pkg/importer"
	"github.com/forest6511/hygienectl/pkg/vault"
)

func imported(title, username, site string) *importer.ImportedItem {
	return &importer.ImportedItem{
		Item:         vault.NewItem{Title: title, Username: username, Password: "pw-" + title, Site: site},
		OriginalName: title,
	}
}

func TestReadImportFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(valid, []byte("url,username,password\n"), 0600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	t.Run("valid file", func(t *testing.T) {
		data, err := readImportFile(valid)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "url,username,password\n" {
			t.Errorf("data = %q", data)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := readImportFile(filepath.Join(dir, "missing.csv")); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("symlink rejected", func(t *testing.T) {
		link := filepath.Join(dir, "link.csv")
		if err := os.Symlink(valid, link); err != nil {
			t.Skipf("symlinks not supported: %v", err)
		}
		if _, err := readImportFile(link); err == nil {
			t.Error("expected error for symlink")
		}
	})

	t.Run("directory rejected", func(t *testing.T) {
		if _, err := readImportFile(dir); err == nil {
			t.Error("expected error for directory")
		}
	})
}

func TestFilterImported(t *testing.T) {
	items := []*importer.ImportedItem{
		imported("Gmail", "alice", "https://mail.google.com"),
		imported("GitHub", "alice", "https://github.com"),
		imported("Bank", "alice", ""),
	}

	got, err := filterImported(items, []string{"g*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != items[0] || got[1] != items[1] {
		t.Errorf("filterImported(g*) = %v, want Gmail and GitHub", got)
	}

	got, err = filterImported(items, []string{"bank"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != items[2] {
		t.Errorf("filterImported(bank) = %v, want Bank", got)
	}

	if _, err := filterImported(items, []string{"[invalid"}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestDropExisting(t *testing.T) {
	existing := []vault.VaultItem{
		{ID: "1", Title: "Gmail", Username: "alice"},
	}
	items := []*importer.ImportedItem{
		imported("gmail ", "ALICE", ""),
		imported("Gmail", "bob", ""),
		imported("GitHub", "alice", ""),
		imported("github", "alice", ""),
	}

	keep, dupes := dropExisting(items, existing)
	if len(keep) != 2 || keep[0] != items[1] || keep[1] != items[2] {
		t.Errorf("keep = %v, want Gmail/bob and GitHub/alice", keep)
	}
	if len(dupes) != 2 || dupes[0] != items[0] || dupes[1] != items[3] {
		t.Errorf("dupes = %v, want the existing match and the repeated GitHub", dupes)
	}
}

func TestImportCmdFlags(t *testing.T) {
	flags := importCmd.Flags()

	tests := []struct {
		name      string
		shorthand string
	}{
		{"from", ""},
		{"dry-run", ""},
		{"match", "m"},
		{"keep-duplicates", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			flag := flags.Lookup(tc.name)
			if flag == nil {
				t.Errorf("flag --%s not found", tc.name)
				return
			}
			if tc.shorthand != "" && flag.Shorthand != tc.shorthand {
				t.Errorf("flag --%s: got shorthand %q, want %q", tc.name, flag.Shorthand, tc.shorthand)
			}
		})
	}
}
