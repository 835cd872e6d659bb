package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/forest6511/hygienectl/pkg/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDir, "")
	t.Setenv(EnvStorage, "")
	t.Setenv(EnvLogLevel, "")
}

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, perm); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Driver != store.DriverBolt {
		t.Errorf("Driver = %q, want %q", cfg.Storage.Driver, store.DriverBolt)
	}
	if cfg.Log.Level != DefaultLevel || cfg.Log.Format != FormatText {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if cfg.VaultDir != DefaultDir() {
		t.Errorf("VaultDir = %q, want %q", cfg.VaultDir, DefaultDir())
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
vault_dir: /tmp/hygiene-vault
storage:
  driver: sqlite
  file: data.sqlite
log:
  level: debug
  format: json
`, 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.VaultDir != "/tmp/hygiene-vault" {
		t.Errorf("VaultDir = %q", cfg.VaultDir)
	}
	if cfg.Storage.Driver != store.DriverSQLite {
		t.Errorf("Driver = %q", cfg.Storage.Driver)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != FormatJSON {
		t.Errorf("Log = %+v", cfg.Log)
	}
	if got, want := cfg.StoragePath(), filepath.Join("/tmp/hygiene-vault", "data.sqlite"); got != want {
		t.Errorf("StoragePath() = %q, want %q", got, want)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "log:\n  level: error\n", 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Level = %q, want error", cfg.Log.Level)
	}
	if cfg.Log.Format != FormatText || cfg.Storage.Driver != store.DriverBolt {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)
	t.Setenv(EnvStorage, "SQLite")
	t.Setenv(EnvLogLevel, "DEBUG")

	path := writeConfig(t, "storage:\n  driver: bolt\nlog:\n  level: info\n", 0600)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.VaultDir != dir {
		t.Errorf("VaultDir = %q, want %q", cfg.VaultDir, dir)
	}
	if cfg.Storage.Driver != store.DriverSQLite {
		t.Errorf("Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_DefaultPathFollowsEnvDir(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvDir, dir)
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("log:\n  format: json\n"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Log.Format != FormatJSON {
		t.Errorf("Format = %q, want json from %s", cfg.Log.Format, dir)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		perm    os.FileMode
		wantErr error
	}{
		{"invalid yaml", "storage: [", 0600, nil},
		{"invalid driver", "storage:\n  driver: postgres\n", 0600, nil},
		{"invalid format", "log:\n  format: xml\n", 0600, nil},
	}
	if runtime.GOOS != "windows" {
		tests = append(tests, struct {
			name    string
			content string
			perm    os.FileMode
			wantErr error
		}{"world writable", "log:\n  level: info\n", 0666, ErrInsecure})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content, tt.perm)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink check is unix only")
	}
	clearEnv(t)

	target := writeConfig(t, "log:\n  level: info\n", 0600)
	link := filepath.Join(t.TempDir(), "link.yaml")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	if _, err := Load(link); !errors.Is(err, ErrSymlink) {
		t.Errorf("Load() error = %v, want ErrSymlink", err)
	}
}

func TestStoragePath(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		file   string
		want   string
	}{
		{"bolt default", store.DriverBolt, "", filepath.Join("/v", "vault.db")},
		{"sqlite default", store.DriverSQLite, "", filepath.Join("/v", "vault.sqlite")},
		{"relative file", store.DriverBolt, "other.db", filepath.Join("/v", "other.db")},
		{"absolute file", store.DriverBolt, "/data/x.db", "/data/x.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{VaultDir: "/v", Storage: StorageConfig{Driver: tt.driver, File: tt.file}}
			if got := cfg.StoragePath(); got != tt.want {
				t.Errorf("StoragePath() = %q, want %q", got, tt.want)
			}
			if sc := cfg.StoreConfig(); sc.Driver != tt.driver || sc.Path != tt.want {
				t.Errorf("StoreConfig() = %+v", sc)
			}
		})
	}
}
