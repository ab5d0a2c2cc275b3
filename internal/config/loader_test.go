package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

const yamlCfg = `addr: :9999
log_level: debug
log_format: console
queue_size: 64
stop_warn_after: 2s
redis:
  addr: 127.0.0.1:6379
managers:
  - id: m1
    rovers:
      - id: r1
        addr: caster:2101
        mountpoint: RTCM3
        heartbeat: 5s
        settings:
          gain: 3
      - id: r2
`

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", yamlCfg)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.LogLevel != "debug" || cfg.LogFormat != "console" || cfg.QueueSize != 64 || cfg.StopWarnAfter.Duration != 2*time.Second {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("redis: %+v", cfg.Redis)
	}
	if len(cfg.Managers) != 1 || len(cfg.Managers[0].Rovers) != 2 {
		t.Fatalf("managers: %+v", cfg.Managers)
	}
	r1 := cfg.Managers[0].Rovers[0]
	if r1.ID != "r1" || r1.Addr != "caster:2101" || r1.Mountpoint != "RTCM3" || r1.Heartbeat.Duration != 5*time.Second || r1.Settings["gain"] != 3 {
		t.Fatalf("rover: %+v", r1)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","log_level":"warn","managers":[{"id":"m2","rovers":[{"id":"r1","heartbeat":"250ms"}]}]}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.LogLevel != "warn" || len(cfg.Managers) != 1 || cfg.Managers[0].ID != "m2" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if hb := cfg.Managers[0].Rovers[0].Heartbeat.Duration; hb != 250*time.Millisecond {
		t.Fatalf("heartbeat=%v", hb)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nstop_warn_after=\"1m\"\n\n[[managers]]\nid=\"m3\"\n\n[[managers.rovers]]\nid=\"r1\"\naddr=\"h:1\"\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.StopWarnAfter.Duration != time.Minute || len(cfg.Managers) != 1 || cfg.Managers[0].Rovers[0].Addr != "h:1" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
	d := t.TempDir()
	bad := map[string]string{
		"cfg.txt":           "not supported",
		"bad-duration.yaml": "stop_warn_after: soon\n",
		"broken.yaml":       "managers: [\n",
		"broken.json":       `{"managers": [}`,
		"broken.toml":       "[[managers]\nid=",
	}
	for name, body := range bad {
		if _, err := Load(writeTempFile(t, d, name, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestIsSupported(t *testing.T) {
	for _, p := range []string{"a.yaml", "a.YML", "a.json", "a.toml"} {
		if !IsSupported(p) {
			t.Fatalf("%s should be supported", p)
		}
	}
	if IsSupported("a.ini") {
		t.Fatalf("a.ini should not be supported")
	}
}
