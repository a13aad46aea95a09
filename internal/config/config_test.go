package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PORT", "")
	t.Setenv("KAIROS_ADDR", "")
	t.Setenv("KAIROS_LOCAL_DB", "")
	t.Setenv("KAIROS_CONFIG", "")

	cfg := Load()
	if cfg.DBPort != 5432 {
		t.Fatalf("expected default port 5432, got %d", cfg.DBPort)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.LocalDBPath != "data/kairos-local.db" {
		t.Fatalf("unexpected local db path: %s", cfg.LocalDBPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "dbhost")
	t.Setenv("DB_PORT", "5555")
	t.Setenv("DB_USER", "kairos")
	t.Setenv("DB_NAME", "kairosdb")
	t.Setenv("KAIROS_CONFIG", "")

	cfg := Load()
	if cfg.DBHost != "dbhost" || cfg.DBPort != 5555 || cfg.DBUser != "kairos" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	want := "host=dbhost port=5555 user=kairos password= dbname=kairosdb sslmode=disable"
	if cfg.ConnString() != want {
		t.Fatalf("conn string = %q, want %q", cfg.ConnString(), want)
	}
}

func TestYAMLOverlayWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kairos.yaml")
	body := "addr: \":9090\"\ndb_host: filehost\njwt_secret: filesecret\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DB_HOST", "envhost")
	t.Setenv("JWT_SECRET", "envsecret")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("KAIROS_CONFIG", path)

	cfg := Load()
	if cfg.DBHost != "filehost" {
		t.Fatalf("expected file overlay for db host, got %s", cfg.DBHost)
	}
	if cfg.JWTSecret != "filesecret" {
		t.Fatalf("expected file overlay for jwt secret, got %s", cfg.JWTSecret)
	}
	if cfg.Addr != ":9090" {
		t.Fatalf("expected file addr, got %s", cfg.Addr)
	}
	// fields absent from the file keep their env values
	if cfg.DBPort != 5432 {
		t.Fatalf("expected env port to survive, got %d", cfg.DBPort)
	}
}

func TestBadConfigFileIgnored(t *testing.T) {
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("KAIROS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()
	if cfg.DBHost != "envhost" {
		t.Fatalf("missing config file should not clobber env, got %s", cfg.DBHost)
	}
}
