package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hiresense/interview-engine/internal/repository"
	"github.com/hiresense/interview-engine/internal/response"
)

// ReportHandler serves persisted interview reports to the recruitment side.
type ReportHandler struct {
	repo *repository.ReportRepository
	log  zerolog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(repo *repository.ReportRepository, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{
		repo: repo,
		log:  log.With().Str("component", "report_handler").Logger(),
	}
}

// GetReport godoc
// GET /api/v1/reports/:candidate_ref
// Returns the candidate's most recent sealed report.
func (h *ReportHandler) GetReport(c *gin.Context) {
	candidateRef := c.Param("candidate_ref")
	if candidateRef == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	report, err := h.repo.GetLatestByCandidateRef(c.Request.Context(), candidateRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrReportNotReady)
			return
		}
		h.log.Error().Err(err).Str("candidate_ref", candidateRef).Msg("Report lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, report)
}

// ListReports godoc
// GET /api/v1/reports?page=1&per_page=20
// Returns report summaries, newest first.
func (h *ReportHandler) ListReports(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	summaries, total, err := h.repo.ListSummaries(c.Request.Context(), page, perPage)
	if err != nil {
		h.log.Error().Err(err).Msg("Report listing failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	totalPages := (total + perPage - 1) / perPage
	response.SuccessWithPagination(c, http.StatusOK, summaries, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
	})
}
