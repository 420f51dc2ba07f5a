package database

import (
	"database/sql"
	"fmt"
)

// SeedDefaults installs a starter tag taxonomy and the wiki categories each
// tag is discovered from. Inserts are idempotent; operator-added rows win.
func SeedDefaults(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}

	defaultTags := []struct {
		slug        string
		displayName string
		category    string
	}{
		{slug: "spiders", displayName: "Spiders", category: "creatures"},
		{slug: "snakes", displayName: "Snakes", category: "creatures"},
		{slug: "monsters", displayName: "Monsters", category: "creatures"},
		{slug: "ghosts", displayName: "Ghosts", category: "creatures"},
		{slug: "zombies", displayName: "Zombies", category: "creatures"},
		{slug: "witches", displayName: "Witches", category: "creatures"},
		{slug: "skeletons", displayName: "Skeletons", category: "creatures"},
		{slug: "darkness", displayName: "Darkness", category: "situations"},
		{slug: "heights", displayName: "Heights", category: "situations"},
		{slug: "thunderstorms", displayName: "Thunderstorms", category: "situations"},
		{slug: "water_danger", displayName: "Water Danger", category: "situations"},
		{slug: "jump_scares", displayName: "Jump Scares", category: "visuals"},
		{slug: "shadows", displayName: "Scary Shadows", category: "visuals"},
		{slug: "nightmares", displayName: "Nightmares", category: "visuals"},
		{slug: "halloween", displayName: "Halloween", category: "themes"},
	}

	for _, tag := range defaultTags {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO content_tags (slug, display_name, category)
			VALUES (?, ?, ?)
		`, tag.slug, tag.displayName, tag.category)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("seed content tag %s: %w", tag.slug, err)
		}
	}

	defaultSources := []struct {
		tagSlug  string
		category string
		priority int
	}{
		{tagSlug: "spiders", category: "Spiders", priority: 10},
		{tagSlug: "snakes", category: "Snakes", priority: 10},
		{tagSlug: "monsters", category: "Monsters", priority: 10},
		{tagSlug: "ghosts", category: "Ghosts", priority: 10},
		{tagSlug: "darkness", category: "Darkness", priority: 10},
		{tagSlug: "thunderstorms", category: "Storms", priority: 10},
		{tagSlug: "halloween", category: "Halloween episodes", priority: 10},
		{tagSlug: "halloween", category: "Halloween", priority: 5},
	}

	for _, source := range defaultSources {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO tag_sources (tag_id, category_name, priority, is_active)
			SELECT id, ?, ?, 1 FROM content_tags WHERE slug = ?
		`, source.category, source.priority, source.tagSlug)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("seed tag source %s/%s: %w", source.tagSlug, source.category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}

	return nil
}
