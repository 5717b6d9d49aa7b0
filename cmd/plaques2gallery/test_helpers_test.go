package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/records"
	"plaques2gallery/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	store      *records.Store
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "plaques2gallery", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		configPath: configPath,
		baseDir:    base,
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// seedRecords ingests resolved, failed, and pending plaques into one batch.
func seedRecords(t *testing.T, env *cliTestEnv) {
	t.Helper()
	ctx := context.Background()

	resolved := testsupport.Ingest(t, env.store, env.cfg, "room1/night-watch.jpg")
	resolved.Query = &records.Query{Title: "The Night Watch", Artist: "Rembrandt van Rijn"}
	resolved.MarkSearched([]records.Candidate{{URL: "https://www.rijksmuseum.nl/en/collection/SK-C-5", Rank: 1}})
	resolved.MarkResolved(
		filepath.Join(env.cfg.Paths.ImagesDir, "The Night Watch by Rembrandt van Rijn.jpg"),
		"https://www.rijksmuseum.nl/en/collection/SK-C-5",
		"https://www.rijksmuseum.nl/images/SK-C-5.jpg",
		"Rijksmuseum",
	)
	if err := env.store.Update(ctx, resolved); err != nil {
		t.Fatalf("Update resolved: %v", err)
	}

	failed := testsupport.Ingest(t, env.store, env.cfg, "room1/blurry.jpg")
	failed.Query = &records.Query{Title: "Untitled"}
	failed.MarkFailed(records.StageSearch, "no search results")
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	testsupport.Ingest(t, env.store, env.cfg, "room2/waiting.jpg")
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
