package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ALLOWED_ORIGIN", "")
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("expected default port 5000, got %q", cfg.Port)
	}
	if cfg.AllowedOrigin != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected default origin %q", cfg.AllowedOrigin)
	}
	if cfg.CatalogCacheTTLSeconds != 30 {
		t.Fatalf("expected default cache TTL 30, got %d", cfg.CatalogCacheTTLSeconds)
	}
	if cfg.Address() != ":5000" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.CatalogCacheTTLSeconds != 30 {
		t.Fatalf("expected fallback TTL 30, got %d", cfg.CatalogCacheTTLSeconds)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "120")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.CatalogCacheTTLSeconds != 120 {
		t.Fatalf("expected TTL 120, got %d", cfg.CatalogCacheTTLSeconds)
	}
}
