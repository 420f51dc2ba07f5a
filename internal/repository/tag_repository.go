package repository

import (
	"database/sql"
	"fmt"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

type TagRepository struct {
	db *sql.DB
}

func NewTagRepository(db *sql.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) ListTags() ([]models.ContentTag, error) {
	rows, err := r.db.Query(`
		SELECT id, slug, display_name, category, created_at
		FROM content_tags
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list content tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

// ListActiveTags returns tags that have at least one active source,
// optionally restricted to the given ids.
func (r *TagRepository) ListActiveTags(filter []int64) ([]models.ContentTag, error) {
	query := `
		SELECT DISTINCT ct.id, ct.slug, ct.display_name, ct.category, ct.created_at
		FROM content_tags ct
		JOIN tag_sources ts ON ts.tag_id = ct.id AND ts.is_active = 1
	`
	args := make([]any, 0, len(filter))
	if len(filter) > 0 {
		query += ` WHERE ct.id IN (` + sqlPlaceholders(len(filter)) + `)`
		args = int64Args(filter)
	}
	query += ` ORDER BY ct.id ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active tags: %w", err)
	}
	defer rows.Close()

	return scanTags(rows)
}

func (r *TagRepository) TagBySlug(slug string) (*models.ContentTag, error) {
	row := r.db.QueryRow(`
		SELECT id, slug, display_name, category, created_at
		FROM content_tags
		WHERE slug = ?
	`, slug)

	var tag models.ContentTag
	if err := row.Scan(&tag.ID, &tag.Slug, &tag.DisplayName, &tag.Category, &tag.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get tag by slug: %w", err)
	}

	return &tag, nil
}

func (r *TagRepository) ListActiveSourcesForTag(tagID int64) ([]models.TagSource, error) {
	rows, err := r.db.Query(`
		SELECT id, tag_id, wiki_slug, category_name, priority, is_active, created_at
		FROM tag_sources
		WHERE tag_id = ? AND is_active = 1
		ORDER BY priority DESC, id ASC
	`, tagID)
	if err != nil {
		return nil, fmt.Errorf("list sources for tag: %w", err)
	}
	defer rows.Close()

	items := make([]models.TagSource, 0)
	for rows.Next() {
		var source models.TagSource
		var wikiSlug sql.NullString
		if err := rows.Scan(&source.ID, &source.TagID, &wikiSlug, &source.CategoryName, &source.Priority, &source.IsActive, &source.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tag source: %w", err)
		}
		if wikiSlug.Valid {
			source.WikiSlug = &wikiSlug.String
		}
		items = append(items, source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag sources: %w", err)
	}

	return items, nil
}

func (r *TagRepository) EpisodeTagExists(episodeID, tagID int64) (bool, error) {
	var one int
	err := r.db.QueryRow(`
		SELECT 1 FROM episode_tags WHERE episode_id = ? AND tag_id = ?
	`, episodeID, tagID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check episode tag: %w", err)
	}
	return true, nil
}

func (r *TagRepository) InsertEpisodeTag(tag models.EpisodeTag) error {
	_, err := r.db.Exec(`
		INSERT OR IGNORE INTO episode_tags (episode_id, tag_id, source, confidence, source_url, extraction_method)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tag.EpisodeID, tag.TagID, tag.Source, tag.Confidence, tag.SourceURL, tag.ExtractionMethod)
	if err != nil {
		return fmt.Errorf("insert episode tag: %w", err)
	}
	return nil
}

// EpisodeTagRow is the joined read shape served by the episode-tags endpoint.
type EpisodeTagRow struct {
	EpisodeID        int64   `json:"episodeId"`
	TitleID          int64   `json:"titleId"`
	SeasonNumber     int     `json:"seasonNumber"`
	EpisodeNumber    int     `json:"episodeNumber"`
	TagID            int64   `json:"tagId"`
	TagSlug          string  `json:"tagSlug"`
	TagDisplayName   string  `json:"tagDisplayName"`
	TagCategory      string  `json:"tagCategory"`
	Source           string  `json:"source"`
	Confidence       float64 `json:"confidence"`
	SourceURL        *string `json:"sourceUrl,omitempty"`
	ExtractionMethod *string `json:"extractionMethod,omitempty"`
}

func (r *TagRepository) ListEpisodeTags(titleID int64, tagSlug string, limit, offset int) ([]EpisodeTagRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT e.id, e.title_id, e.season_number, e.episode_number,
			ct.id, ct.slug, ct.display_name, ct.category,
			et.source, et.confidence, et.source_url, et.extraction_method
		FROM episode_tags et
		JOIN episodes e ON e.id = et.episode_id
		JOIN content_tags ct ON ct.id = et.tag_id
		WHERE 1 = 1
	`
	args := make([]any, 0, 2)
	if titleID > 0 {
		query += ` AND e.title_id = ?`
		args = append(args, titleID)
	}
	if tagSlug != "" {
		query += ` AND ct.slug = ?`
		args = append(args, tagSlug)
	}
	query += ` ORDER BY e.title_id ASC, e.season_number ASC, e.episode_number ASC, ct.slug ASC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list episode tags: %w", err)
	}
	defer rows.Close()

	items := make([]EpisodeTagRow, 0)
	for rows.Next() {
		var row EpisodeTagRow
		var sourceURL, extractionMethod sql.NullString
		if err := rows.Scan(
			&row.EpisodeID, &row.TitleID, &row.SeasonNumber, &row.EpisodeNumber,
			&row.TagID, &row.TagSlug, &row.TagDisplayName, &row.TagCategory,
			&row.Source, &row.Confidence, &sourceURL, &extractionMethod,
		); err != nil {
			return nil, fmt.Errorf("scan episode tag row: %w", err)
		}
		if sourceURL.Valid {
			row.SourceURL = &sourceURL.String
		}
		if extractionMethod.Valid {
			row.ExtractionMethod = &extractionMethod.String
		}
		items = append(items, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episode tag rows: %w", err)
	}

	return items, nil
}

func scanTags(rows *sql.Rows) ([]models.ContentTag, error) {
	items := make([]models.ContentTag, 0)
	for rows.Next() {
		var tag models.ContentTag
		if err := rows.Scan(&tag.ID, &tag.Slug, &tag.DisplayName, &tag.Category, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan content tag: %w", err)
		}
		items = append(items, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content tags: %w", err)
	}

	return items, nil
}
