package showconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

type captureStore struct {
	configs []models.ShowConfig
}

func (c *captureStore) UpsertShowConfig(config models.ShowConfig) error {
	c.configs = append(c.configs, config)
	return nil
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()

	valid := `
titleId: 1
wikiSlug: bluey
episodeListPage: List of Bluey episodes
tableSelector: table.episodes
`

	disabled := `
titleId: 2
wikiSlug: peppapig
disabled: true
`

	minimal := `
titleId: 3
`

	if err := os.WriteFile(filepath.Join(tmpDir, "bluey.yaml"), []byte(valid), 0o644); err != nil {
		t.Fatalf("write valid yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "peppa.yml"), []byte(disabled), 0o644); err != nil {
		t.Fatalf("write disabled yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "minimal.yaml"), []byte(minimal), 0o644); err != nil {
		t.Fatalf("write minimal yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write ignored file: %v", err)
	}

	store := &captureStore{}
	loaded, err := LoadFromDir(tmpDir, store)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if loaded != 2 {
		t.Fatalf("loaded = %d, want 2", loaded)
	}

	first := store.configs[0]
	if first.TitleID != 1 {
		t.Fatalf("first title id = %d, want 1", first.TitleID)
	}
	if first.WikiSlug == nil || *first.WikiSlug != "bluey" {
		t.Fatalf("wiki slug = %v, want bluey", first.WikiSlug)
	}
	if first.EpisodeListPage == nil || *first.EpisodeListPage != "List of Bluey episodes" {
		t.Fatalf("episode list page = %v", first.EpisodeListPage)
	}

	second := store.configs[1]
	if second.TitleID != 3 || second.WikiSlug != nil {
		t.Fatalf("minimal config = %+v, want bare title id", second)
	}
}

func TestLoadFromDirBadFilesReported(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "broken.yaml"), []byte(":\tnot yaml"), 0o644); err != nil {
		t.Fatalf("write broken yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "no-id.yaml"), []byte("wikiSlug: x"), 0o644); err != nil {
		t.Fatalf("write incomplete yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "ok.yaml"), []byte("titleId: 9"), 0o644); err != nil {
		t.Fatalf("write valid yaml: %v", err)
	}

	store := &captureStore{}
	loaded, err := LoadFromDir(tmpDir, store)
	if err == nil {
		t.Fatal("expected aggregated error for bad files")
	}
	if loaded != 1 {
		t.Fatalf("loaded = %d, want the one valid file", loaded)
	}
}

func TestLoadFromDirMissingDir(t *testing.T) {
	loaded, err := LoadFromDir(filepath.Join(t.TempDir(), "does-not-exist"), &captureStore{})
	if err != nil || loaded != 0 {
		t.Fatalf("missing dir: loaded=%d err=%v, want 0/nil", loaded, err)
	}
}
