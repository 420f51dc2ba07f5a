package handlers

import (
	"context"
	"strings"

	"github.com/axolotly/content-tagger/backend/internal/scrape"
	"github.com/gofiber/fiber/v2"
)

type categoryScrapeRequest struct {
	Wiki       string  `json:"wiki"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type categoryScraper interface {
	ScrapeCategory(ctx context.Context, wiki, category string, confidence float64) (scrape.LegacyStats, error)
}

// ScrapeHandler exposes the synchronous single-category admin scrape.
type ScrapeHandler struct {
	scraper categoryScraper
}

func NewScrapeHandler(scraper categoryScraper) *ScrapeHandler {
	return &ScrapeHandler{scraper: scraper}
}

func (h *ScrapeHandler) Category(c *fiber.Ctx) error {
	var req categoryScrapeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	req.Wiki = strings.TrimSpace(req.Wiki)
	req.Category = strings.TrimSpace(req.Category)
	if req.Wiki == "" || req.Category == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "wiki and category are required"})
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "confidence must be between 0 and 1"})
	}

	stats, err := h.scraper.ScrapeCategory(c.Context(), req.Wiki, req.Category, req.Confidence)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"message": err.Error()})
	}

	return c.JSON(stats)
}
