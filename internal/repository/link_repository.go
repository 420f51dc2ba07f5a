package repository

import (
	"database/sql"
	"fmt"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

type LinkRepository struct {
	db *sql.DB
}

func NewLinkRepository(db *sql.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// UpsertLink writes the best known wiki page mapping for one episode slot.
// Re-matching the same (title, season, episode) overwrites the previous row.
func (r *LinkRepository) UpsertLink(link models.FandomEpisodeLink) error {
	_, err := r.db.Exec(`
		INSERT INTO fandom_episode_links
			(title_id, episode_id, season_number, episode_number, fandom_page_id, fandom_page_title, fandom_url, confidence, matching_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(title_id, season_number, episode_number)
		DO UPDATE SET
			episode_id = excluded.episode_id,
			fandom_page_id = excluded.fandom_page_id,
			fandom_page_title = excluded.fandom_page_title,
			fandom_url = excluded.fandom_url,
			confidence = excluded.confidence,
			matching_method = excluded.matching_method,
			updated_at = CURRENT_TIMESTAMP
	`, link.TitleID, link.EpisodeID, link.SeasonNumber, link.EpisodeNumber,
		link.FandomPageID, link.FandomPageTitle, link.FandomURL, link.Confidence, link.MatchingMethod)
	if err != nil {
		return fmt.Errorf("upsert episode link: %w", err)
	}
	return nil
}

func (r *LinkRepository) ListLinksForTitle(titleID int64) ([]models.FandomEpisodeLink, error) {
	rows, err := r.db.Query(`
		SELECT id, title_id, episode_id, season_number, episode_number,
			fandom_page_id, fandom_page_title, fandom_url, confidence, matching_method,
			created_at, updated_at
		FROM fandom_episode_links
		WHERE title_id = ?
		ORDER BY season_number ASC, episode_number ASC
	`, titleID)
	if err != nil {
		return nil, fmt.Errorf("list links for title: %w", err)
	}
	defer rows.Close()

	items := make([]models.FandomEpisodeLink, 0)
	for rows.Next() {
		var link models.FandomEpisodeLink
		var episodeID, pageID sql.NullInt64
		var fandomURL sql.NullString
		if err := rows.Scan(
			&link.ID, &link.TitleID, &episodeID, &link.SeasonNumber, &link.EpisodeNumber,
			&pageID, &link.FandomPageTitle, &fandomURL, &link.Confidence, &link.MatchingMethod,
			&link.CreatedAt, &link.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan episode link: %w", err)
		}
		if episodeID.Valid {
			link.EpisodeID = &episodeID.Int64
		}
		if pageID.Valid {
			link.FandomPageID = &pageID.Int64
		}
		if fandomURL.Valid {
			link.FandomURL = &fandomURL.String
		}
		items = append(items, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate episode links: %w", err)
	}

	return items, nil
}
