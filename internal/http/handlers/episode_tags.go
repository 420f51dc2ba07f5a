package handlers

import (
	"database/sql"
	"strconv"

	"github.com/axolotly/content-tagger/backend/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type EpisodeTagsHandler struct {
	repo *repository.TagRepository
}

func NewEpisodeTagsHandler(db *sql.DB) *EpisodeTagsHandler {
	return &EpisodeTagsHandler{repo: repository.NewTagRepository(db)}
}

// List serves the provenance view: which episodes carry which tags, where
// the evidence came from and how confident the match was.
func (h *EpisodeTagsHandler) List(c *fiber.Ctx) error {
	var titleID int64
	if raw := c.Query("titleId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid titleId"})
		}
		titleID = parsed
	}

	limit := c.QueryInt("limit", 100)
	skip := c.QueryInt("skip", 0)

	items, err := h.repo.ListEpisodeTags(titleID, c.Query("tag"), limit, skip)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to list episode tags"})
	}

	return c.JSON(fiber.Map{"items": items})
}
