package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATA_DIR", "LATEST_STORE", "ADMIN_PASSWORD", "MAX_UPLOAD_BYTES", "CORS_ALLOWED_ORIGINS", "TRUST_PROXY_HEADERS"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "3001" {
		t.Fatalf("Port mismatch: got %q", cfg.Port)
	}
	if cfg.DataDir != "data" || cfg.UploadDir != "uploads" {
		t.Fatalf("directory defaults mismatch: %q %q", cfg.DataDir, cfg.UploadDir)
	}
	if cfg.LatestStore != LatestStoreFile {
		t.Fatalf("LatestStore mismatch: got %q", cfg.LatestStore)
	}
	if cfg.AdminPassword != "admin123" {
		t.Fatalf("AdminPassword mismatch: got %q", cfg.AdminPassword)
	}
	if cfg.MaxUploadBytes != 25*1024*1024 {
		t.Fatalf("MaxUploadBytes mismatch: got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("CORSAllowedOrigins mismatch: %#v", cfg.CORSAllowedOrigins)
	}
	if cfg.TrustProxyHeaders {
		t.Fatal("TrustProxyHeaders must default to false")
	}
}

func TestLoadConfigTrustProxyHeaders(t *testing.T) {
	t.Setenv("LATEST_STORE", "")
	for value, want := range map[string]bool{"true": true, " 1 ": true, "false": false, "maybe": false} {
		t.Setenv("TRUST_PROXY_HEADERS", value)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if cfg.TrustProxyHeaders != want {
			t.Fatalf("TRUST_PROXY_HEADERS=%q: got %v, want %v", value, cfg.TrustProxyHeaders, want)
		}
	}
}

func TestLoadConfigPostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("LATEST_STORE", "Postgres")
	t.Setenv("DATABASE_URL", "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://example")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LatestStore != LatestStorePostgres {
		t.Fatalf("LatestStore mismatch: got %q", cfg.LatestStore)
	}
}

func TestLoadConfigRejectsUnknownLatestStore(t *testing.T) {
	t.Setenv("LATEST_STORE", "redis")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unknown LATEST_STORE")
	}
}

func TestLoadConfigSplitsOrigins(t *testing.T) {
	t.Setenv("LATEST_STORE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins mismatch: got %#v want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
}

func TestLoadEnvFilesFirstFileWins(t *testing.T) {
	dir := t.TempDir()
	con := filepath.Join(dir, "config.con")
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(con, []byte("IMAGEFILL_TEST_A=from-con\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dotenv, []byte("IMAGEFILL_TEST_A=from-env\nIMAGEFILL_TEST_B=only-env\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("IMAGEFILL_TEST_A")
		os.Unsetenv("IMAGEFILL_TEST_B")
	})

	if err := LoadEnvFiles(con, filepath.Join(dir, "missing.env"), dotenv); err != nil {
		t.Fatalf("LoadEnvFiles returned error: %v", err)
	}
	if got := os.Getenv("IMAGEFILL_TEST_A"); got != "from-con" {
		t.Fatalf("IMAGEFILL_TEST_A = %q, want from-con", got)
	}
	if got := os.Getenv("IMAGEFILL_TEST_B"); got != "only-env" {
		t.Fatalf("IMAGEFILL_TEST_B = %q, want only-env", got)
	}
}
