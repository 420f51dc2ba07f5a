package repository

import (
	"database/sql"
	"fmt"

	"github.com/axolotly/content-tagger/backend/internal/matcher"
	"github.com/axolotly/content-tagger/backend/internal/models"
)

// CatalogRepository reads the title/episode catalog and per-show overrides.
// The catalog itself is owned by the ingestion process; this subsystem only
// writes show_configs.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) TitleByID(id int64) (*models.Title, error) {
	row := r.db.QueryRow(`
		SELECT id, tmdb_id, name, media_type, wiki_slug, created_at, updated_at
		FROM titles
		WHERE id = ?
	`, id)

	var title models.Title
	var tmdbID sql.NullInt64
	var wikiSlug sql.NullString
	if err := row.Scan(&title.ID, &tmdbID, &title.Name, &title.MediaType, &wikiSlug, &title.CreatedAt, &title.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get title by id: %w", err)
	}
	if tmdbID.Valid {
		title.TmdbID = &tmdbID.Int64
	}
	if wikiSlug.Valid {
		title.WikiSlug = &wikiSlug.String
	}

	return &title, nil
}

// ListEligibleTitles returns TV titles that already have episodes loaded,
// optionally restricted to the given ids.
func (r *CatalogRepository) ListEligibleTitles(filter []int64) ([]models.Title, error) {
	query := `
		SELECT t.id, t.tmdb_id, t.name, t.media_type, t.wiki_slug, t.created_at, t.updated_at
		FROM titles t
		WHERE t.media_type = 'tv'
		AND EXISTS (SELECT 1 FROM episodes e WHERE e.title_id = t.id)
	`
	args := make([]any, 0, len(filter))
	if len(filter) > 0 {
		query += ` AND t.id IN (` + sqlPlaceholders(len(filter)) + `)`
		args = int64Args(filter)
	}
	query += ` ORDER BY t.id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list eligible titles: %w", err)
	}
	defer rows.Close()

	items := make([]models.Title, 0)
	for rows.Next() {
		var title models.Title
		var tmdbID sql.NullInt64
		var wikiSlug sql.NullString
		if err := rows.Scan(&title.ID, &tmdbID, &title.Name, &title.MediaType, &wikiSlug, &title.CreatedAt, &title.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		if tmdbID.Valid {
			title.TmdbID = &tmdbID.Int64
		}
		if wikiSlug.Valid {
			title.WikiSlug = &wikiSlug.String
		}
		items = append(items, title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	return items, nil
}

// TitlesMatchingName finds TV titles whose name contains the given fragment,
// case-insensitively. Used by the legacy category strategy.
func (r *CatalogRepository) TitlesMatchingName(fragment string) ([]models.Title, error) {
	rows, err := r.db.Query(`
		SELECT id, tmdb_id, name, media_type, wiki_slug, created_at, updated_at
		FROM titles
		WHERE media_type = 'tv' AND name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY id ASC
	`, fragment)
	if err != nil {
		return nil, fmt.Errorf("list titles matching name: %w", err)
	}
	defer rows.Close()

	items := make([]models.Title, 0)
	for rows.Next() {
		var title models.Title
		var tmdbID sql.NullInt64
		var wikiSlug sql.NullString
		if err := rows.Scan(&title.ID, &tmdbID, &title.Name, &title.MediaType, &wikiSlug, &title.CreatedAt, &title.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		if tmdbID.Valid {
			title.TmdbID = &tmdbID.Int64
		}
		if wikiSlug.Valid {
			title.WikiSlug = &wikiSlug.String
		}
		items = append(items, title)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}

	return items, nil
}

func (r *CatalogRepository) EpisodeByNumber(titleID int64, season, episode int) (*matcher.CatalogEpisode, error) {
	row := r.db.QueryRow(`
		SELECT id, season_number, episode_number, COALESCE(name, '')
		FROM episodes
		WHERE title_id = ? AND season_number = ? AND episode_number = ?
	`, titleID, season, episode)

	var result matcher.CatalogEpisode
	if err := row.Scan(&result.ID, &result.SeasonNumber, &result.EpisodeNumber, &result.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get episode by number: %w", err)
	}

	return &result, nil
}

func (r *CatalogRepository) EpisodesForTitle(titleID int64) ([]matcher.CatalogEpisode, error) {
	rows, err := r.db.Query(`
		SELECT id, season_number, episode_number, COALESCE(name, '')
		FROM episodes
		WHERE title_id = ?
		ORDER BY season_number ASC, episode_number ASC
	`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list episodes for title: %w", err)
	}
	defer rows.Close()

	items := make([]matcher.CatalogEpisode, 0)
	for rows.Next() {
		var episode matcher.CatalogEpisode
		if err := rows.Scan(&episode.ID, &episode.SeasonNumber, &episode.EpisodeNumber, &episode.Name); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		items = append(items, episode)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episodes: %w", err)
	}

	return items, nil
}

func (r *CatalogRepository) ShowConfigForTitle(titleID int64) (*models.ShowConfig, error) {
	row := r.db.QueryRow(`
		SELECT id, title_id, wiki_slug, episode_list_page, table_selector, created_at, updated_at
		FROM show_configs
		WHERE title_id = ?
	`, titleID)

	var config models.ShowConfig
	var wikiSlug, episodeListPage, tableSelector sql.NullString
	if err := row.Scan(&config.ID, &config.TitleID, &wikiSlug, &episodeListPage, &tableSelector, &config.CreatedAt, &config.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get show config: %w", err)
	}
	if wikiSlug.Valid {
		config.WikiSlug = &wikiSlug.String
	}
	if episodeListPage.Valid {
		config.EpisodeListPage = &episodeListPage.String
	}
	if tableSelector.Valid {
		config.TableSelector = &tableSelector.String
	}

	return &config, nil
}

func (r *CatalogRepository) UpsertShowConfig(config models.ShowConfig) error {
	_, err := r.db.Exec(`
		INSERT INTO show_configs (title_id, wiki_slug, episode_list_page, table_selector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(title_id)
		DO UPDATE SET
			wiki_slug = excluded.wiki_slug,
			episode_list_page = excluded.episode_list_page,
			table_selector = excluded.table_selector,
			updated_at = CURRENT_TIMESTAMP
	`, config.TitleID, config.WikiSlug, config.EpisodeListPage, config.TableSelector)
	if err != nil {
		return fmt.Errorf("upsert show config: %w", err)
	}
	return nil
}
