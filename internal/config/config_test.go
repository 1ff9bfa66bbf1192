package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/cpctprep/internal/typing"
)

const sampleConfig = `
[practice]
lang = "en"
words = 40
focus-weak = true
duration = "5m"

[scoring]
rounding = "half-even"

[server]
addr = ":9090"
jwt-ttl = "1h"

[exams.cpct-english]
min-net-wpm = 35.0

[exams.speed-drill]
name = "Speed drill"
lang = "en"
duration = "2m"
min-net-wpm = 40.0
min-accuracy = 90.0
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Practice.Lang != nil || len(cfg.Exams) != 0 {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Practice.Words == nil || *cfg.Practice.Words != 40 {
		t.Fatalf("unexpected practice words: %v", cfg.Practice.Words)
	}
	if cfg.Practice.FocusWeak == nil || !*cfg.Practice.FocusWeak {
		t.Fatalf("expected focus-weak")
	}

	engine, err := cfg.Engine()
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if engine.Rounding != typing.HalfEven {
		t.Fatalf("expected half-even rounding, got %v", engine.Rounding)
	}

	reg, err := cfg.ExamRegistry()
	if err != nil {
		t.Fatalf("exam registry: %v", err)
	}
	english, err := reg.Lookup("cpct-english")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if english.MinNetWPM != 35 || english.Duration != 10*time.Minute {
		t.Fatalf("expected partial override, got %+v", english)
	}
	drill, err := reg.Lookup("speed-drill")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if drill.Name != "Speed drill" || drill.Duration != 2*time.Minute || drill.MinAccuracy != 90 {
		t.Fatalf("unexpected custom exam: %+v", drill)
	}
}

func TestConfigRejectsBadValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "[scoring]\nrounding = \"ceil\"\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := cfg.Engine(); err == nil {
		t.Fatalf("expected rounding error")
	}

	cfg, err = LoadConfig(writeConfig(t, "[exams.x]\nduration = \"ten\"\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := cfg.ExamRegistry(); err == nil {
		t.Fatalf("expected duration error")
	}

	if _, err := LoadConfig(writeConfig(t, "[practice\n")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoadServerConfigPrecedence(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("CPCTPREP_JWT_SECRET", "from-env")
	t.Setenv("CPCTPREP_BACKEND", "")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	dotEnv := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(dotEnv, []byte("CPCTPREP_MONGO_DB=exams\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("CPCTPREP_MONGO_DB")
	})

	srv, err := LoadServerConfig(cfg, dotEnv)
	if err != nil {
		t.Fatalf("load server config: %v", err)
	}
	if srv.Addr != ":9090" {
		t.Fatalf("expected file addr, got %q", srv.Addr)
	}
	if srv.JWTTTL != time.Hour {
		t.Fatalf("expected file ttl, got %v", srv.JWTTTL)
	}
	if srv.JWTSecret != "from-env" {
		t.Fatalf("expected env secret, got %q", srv.JWTSecret)
	}
	if srv.MongoDB != "exams" {
		t.Fatalf("expected .env mongo db, got %q", srv.MongoDB)
	}
	if srv.Backend != BackendSQLite {
		t.Fatalf("expected default backend, got %q", srv.Backend)
	}
}

func TestLoadServerConfigRequiresSecret(t *testing.T) {
	t.Setenv("CPCTPREP_JWT_SECRET", "")
	if _, err := LoadServerConfig(FileConfig{}, ""); err == nil {
		t.Fatalf("expected missing secret error")
	}
	t.Setenv("CPCTPREP_JWT_SECRET", "s")
	t.Setenv("CPCTPREP_BACKEND", "postgres")
	if _, err := LoadServerConfig(FileConfig{}, ""); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}
