package showconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/axolotly/content-tagger/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// FileConfig is one per-show override file. TitleID is the only required
// field; everything else overrides a discovery default.
type FileConfig struct {
	TitleID         int64  `yaml:"titleId"`
	WikiSlug        string `yaml:"wikiSlug"`
	EpisodeListPage string `yaml:"episodeListPage"`
	TableSelector   string `yaml:"tableSelector"`
	Disabled        bool   `yaml:"disabled"`
}

type ConfigStore interface {
	UpsertShowConfig(config models.ShowConfig) error
}

// LoadFromDir reads every .yaml/.yml file in dirPath and upserts each one as
// a show config row. A missing directory is not an error; individual bad
// files are collected and reported after the rest have loaded.
func LoadFromDir(dirPath string, store ConfigStore) (int, error) {
	trimmed := strings.TrimSpace(dirPath)
	if trimmed == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read show configs dir: %w", err)
	}

	files := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		lower := strings.ToLower(entry.Name())
		if strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml") {
			files = append(files, filepath.Join(trimmed, entry.Name()))
		}
	}
	sort.Strings(files)

	loaded := 0
	errors := make([]string, 0)

	for _, filePath := range files {
		content, err := os.ReadFile(filePath)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}

		var cfg FileConfig
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}
		if cfg.Disabled {
			continue
		}
		if cfg.TitleID <= 0 {
			errors = append(errors, fmt.Sprintf("%s: titleId is required", filepath.Base(filePath)))
			continue
		}

		if err := store.UpsertShowConfig(toModel(cfg)); err != nil {
			errors = append(errors, fmt.Sprintf("%s: %v", filepath.Base(filePath), err))
			continue
		}
		loaded++
	}

	if len(errors) > 0 {
		return loaded, fmt.Errorf("show configs failed to load: %s", strings.Join(errors, " | "))
	}

	return loaded, nil
}

func toModel(cfg FileConfig) models.ShowConfig {
	config := models.ShowConfig{TitleID: cfg.TitleID}
	if cfg.WikiSlug != "" {
		config.WikiSlug = &cfg.WikiSlug
	}
	if cfg.EpisodeListPage != "" {
		config.EpisodeListPage = &cfg.EpisodeListPage
	}
	if cfg.TableSelector != "" {
		config.TableSelector = &cfg.TableSelector
	}
	return config
}
