package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `boards:
  - x86-alex
  - daisy
board_aliases:
  daisy: snow
devservers:
  - http://ds1:8082
  - http://ds2:8082
manifest_versions:
  url: https://git.example.com/manifest-versions
driver:
  tick_interval: 90s
  admin_port: 9090
storage:
  data_dir: /var/lib/sched
notify:
  enabled: true
  nats_url: nats://localhost:4222
new_build_params:
  always_handle: true
  pools:
    - bvt
    - cq
ignored_section:
  something: else
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeTemp(t, testConfig))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if len(cfg.Boards) != 2 || cfg.Boards[0] != "x86-alex" {
		t.Errorf("Boards = %v, want [x86-alex daisy]", cfg.Boards)
	}

	if cfg.BoardAliases["daisy"] != "snow" {
		t.Errorf("BoardAliases[daisy] = %v, want snow", cfg.BoardAliases["daisy"])
	}

	if len(cfg.Devservers) != 2 {
		t.Fatalf("Devservers count = %v, want 2", len(cfg.Devservers))
	}

	if cfg.Driver.Tick() != 90*time.Second {
		t.Errorf("Tick() = %v, want 90s", cfg.Driver.Tick())
	}

	if cfg.Driver.AdminPort != 9090 {
		t.Errorf("AdminPort = %v, want 9090", cfg.Driver.AdminPort)
	}

	if !cfg.Notify.Enabled {
		t.Error("Notify.Enabled = false, want true")
	}

	// Defaults
	if cfg.Driver.BoardConcurrency != 4 {
		t.Errorf("BoardConcurrency = %v, want default 4", cfg.Driver.BoardConcurrency)
	}

	if cfg.ManifestVersions.Dir != "/var/lib/sched/manifest-versions" {
		t.Errorf("ManifestVersions.Dir = %v, want under data_dir", cfg.ManifestVersions.Dir)
	}

	if cfg.Notify.Subject != "suitescheduler.dispatch" {
		t.Errorf("Notify.Subject = %v, want default", cfg.Notify.Subject)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() with missing file should fail")
	}
}

func TestSections(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if !cfg.HasSection("new_build_params") {
		t.Error("HasSection(new_build_params) = false, want true")
	}

	if cfg.HasSection("boards") {
		t.Error("HasSection(boards) = true, want false for non-mapping key")
	}

	found := false
	for _, name := range cfg.Sections() {
		if name == "ignored_section" {
			found = true
		}
	}
	if !found {
		t.Errorf("Sections() = %v, want to contain ignored_section", cfg.Sections())
	}
}

func TestGetBoolean(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	v, err := cfg.GetBoolean("new_build_params", "always_handle")
	if err != nil {
		t.Fatalf("GetBoolean() error: %v", err)
	}
	if !v {
		t.Error("GetBoolean(always_handle) = false, want true")
	}
}

func TestGetBoolean_MissingSection(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	_, err = cfg.GetBoolean("no_such_params", "always_handle")
	var se *SectionError
	if !errors.As(err, &se) {
		t.Fatalf("expected SectionError, got %v", err)
	}
	if se.Section != "no_such_params" {
		t.Errorf("SectionError.Section = %v, want no_such_params", se.Section)
	}
}

func TestGetBoolean_MissingOption(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	_, err = cfg.GetBoolean("new_build_params", "no_such_option")
	if !errors.Is(err, ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
	var oe *OptionError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OptionError, got %v", err)
	}
}

func TestGetBoolean_Malformed(t *testing.T) {
	cfg, err := Parse([]byte("some_params:\n  flag: banana\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	_, err = cfg.GetBoolean("some_params", "flag")
	if err == nil {
		t.Fatal("GetBoolean() with malformed value should fail")
	}
	if errors.Is(err, ErrMissing) {
		t.Error("malformed value should not report ErrMissing")
	}
}

func TestGetBoolean_Coercions(t *testing.T) {
	cfg, err := Parse([]byte("s_params:\n  a: \"yes\"\n  b: \"off\"\n  c: 1\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	cases := []struct {
		option string
		want   bool
	}{
		{"a", true},
		{"b", false},
		{"c", true},
	}
	for _, tc := range cases {
		got, err := cfg.GetBoolean("s_params", tc.option)
		if err != nil {
			t.Errorf("GetBoolean(%s) error: %v", tc.option, err)
			continue
		}
		if got != tc.want {
			t.Errorf("GetBoolean(%s) = %v, want %v", tc.option, got, tc.want)
		}
	}
}

func TestGetStringList(t *testing.T) {
	cfg, err := Parse([]byte(testConfig))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	pools, err := cfg.GetStringList("new_build_params", "pools")
	if err != nil {
		t.Fatalf("GetStringList() error: %v", err)
	}
	if len(pools) != 2 || pools[0] != "bvt" || pools[1] != "cq" {
		t.Errorf("GetStringList(pools) = %v, want [bvt cq]", pools)
	}

	_, err = cfg.GetStringList("new_build_params", "always_handle")
	if err == nil {
		t.Error("GetStringList() on scalar should fail")
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("SCHED_TEST_URL", "nats://expanded:4222")
	cfg, err := Parse([]byte("notify:\n  enabled: true\n  nats_url: ${SCHED_TEST_URL}\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.Notify.NATSURL != "nats://expanded:4222" {
		t.Errorf("NATSURL = %v, want expanded value", cfg.Notify.NATSURL)
	}
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")

	if err := Init(path, false); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	// A second Init without force must refuse to overwrite.
	if err := Init(path, false); err == nil {
		t.Fatal("Init() over existing file should fail without force")
	}

	if err := Init(path, true); err != nil {
		t.Fatalf("Init(force) error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of generated config error: %v", err)
	}
	if !cfg.HasSection("new_build_params") {
		t.Error("generated config should contain new_build_params section")
	}
}
