package pdfconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvVar, "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" || cfg.Log.Format != "auto" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if m, err := cfg.Write.Mode(); err != nil || m != 0644 {
		t.Errorf("Mode = %o, %v", m, err)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pdfx.yaml")
	data := "log:\n  level: debug\nwrite:\n  file_mode: \"0600\"\n  compress_streams: true\ncrypto:\n  default_password: secret\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDFX_TEST_DIR", dir)
	t.Setenv(EnvVar, "${PDFX_TEST_DIR}/pdfx.yaml")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "auto" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Crypto.DefaultPassword != "secret" {
		t.Errorf("default password = %q", cfg.Crypto.DefaultPassword)
	}
	if m, _ := cfg.Write.Mode(); m != 0600 {
		t.Errorf("Mode = %o", m)
	}
	if !cfg.Write.CompressStreams {
		t.Error("compress_streams not read")
	}
}

func TestLoadJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfx.jsonc")
	data := `{
		// comments are allowed
		"log": {"format": "json",},
		/* and trailing commas */
		"crypto": {"default_password": "pw"},
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "warn" || cfg.Crypto.DefaultPassword != "pw" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, data := range map[string]string{
		"level.yaml": "log:\n  level: loud\n",
		"mode.yaml":  "write:\n  file_mode: rw\n",
		"bad.yaml":   "log: [\n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Errorf("%s: LoadFile succeeded", name)
		}
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}
