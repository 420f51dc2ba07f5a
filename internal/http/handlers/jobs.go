package handlers

import (
	"strconv"

	"github.com/axolotly/content-tagger/backend/internal/models"
	"github.com/gofiber/fiber/v2"
)

type createJobRequest struct {
	TitleIDs      []int64 `json:"titleIds"`
	TagIDs        []int64 `json:"tagIds"`
	ForceRescrape bool    `json:"forceRescrape"`
	RequestedBy   string  `json:"requestedBy"`
}

type jobService interface {
	CreateJob(requestedBy string, titleIDs, tagIDs []int64, forceRescrape bool) (*models.ScrapeJob, error)
	GetJob(id int64) (*models.ScrapeJob, error)
	ListRuns(jobID int64) ([]models.ScrapeRun, error)
}

type jobDispatcher interface {
	Enqueue(jobID int64)
}

type JobsHandler struct {
	service    jobService
	dispatcher jobDispatcher
}

func NewJobsHandler(service jobService, dispatcher jobDispatcher) *JobsHandler {
	return &JobsHandler{service: service, dispatcher: dispatcher}
}

// Create persists the job with its run fan-out and hands it to the worker
// pool. The response is the pending job snapshot, not the outcome.
func (h *JobsHandler) Create(c *fiber.Ctx) error {
	var req createJobRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}

	requestedBy := req.RequestedBy
	if requestedBy == "" {
		requestedBy = "api"
	}

	job, err := h.service.CreateJob(requestedBy, req.TitleIDs, req.TagIDs, req.ForceRescrape)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to create scrape job"})
	}

	h.dispatcher.Enqueue(job.ID)

	return c.Status(fiber.StatusAccepted).JSON(job)
}

func (h *JobsHandler) GetByID(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid job id"})
	}

	job, err := h.service.GetJob(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load job"})
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "job not found"})
	}

	return c.JSON(job)
}

func (h *JobsHandler) ListRuns(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid job id"})
	}

	job, err := h.service.GetJob(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load job"})
	}
	if job == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "job not found"})
	}

	runs, err := h.service.ListRuns(id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to load runs"})
	}

	return c.JSON(fiber.Map{"items": runs})
}
