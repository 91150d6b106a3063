package database

import (
	"strings"
	"testing"
)

func TestPostgresConfigDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "creators"}
	dsn := cfg.DSN()
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Fatalf("expected default sslmode, got %q", dsn)
	}
	if !strings.Contains(dsn, "port=5433") || !strings.Contains(dsn, "dbname=creators") {
		t.Fatalf("unexpected dsn %q", dsn)
	}

	cfg.SSLMode = "require"
	if !strings.Contains(cfg.DSN(), "sslmode=require") {
		t.Fatalf("expected sslmode=require, got %q", cfg.DSN())
	}
}

func TestSchemaDeclaresTables(t *testing.T) {
	for _, table := range []string{"creators", "creator_slugs", "profile_versions", "refresh_schedules"} {
		if !strings.Contains(schemaSQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema missing table %s", table)
		}
	}
}

func TestPostgresConfigDefaults(t *testing.T) {
	cfg := PostgresConfig{MaxOpenConns: 3, MaxIdleConns: 10}.withDefaults()
	if cfg.MaxIdleConns != 3 {
		t.Errorf("idle conns should not exceed open conns, got %d", cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime <= 0 || cfg.SSLMode != "disable" {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	cfg = PostgresConfig{}.withDefaults()
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Errorf("expected positive pool sizes, got %+v", cfg)
	}
}

func TestSchemaChecksumStable(t *testing.T) {
	if SchemaChecksum() != SchemaChecksum() || len(SchemaChecksum()) != 64 {
		t.Fatalf("unexpected checksum %q", SchemaChecksum())
	}
}
