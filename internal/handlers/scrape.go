package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/pipeline"
)

// Runner executes and remembers pipeline runs.
type Runner interface {
	Run(ctx context.Context, src *catalog.Source, trigger string) *pipeline.Report
	LastReports() map[string]*pipeline.Report
}

// ScrapeHandler handles the admin scrape endpoints.
type ScrapeHandler struct {
	runner  Runner
	catalog *catalog.Catalog
}

// NewScrapeHandler creates a new scrape handler.
func NewScrapeHandler(runner Runner, cat *catalog.Catalog) *ScrapeHandler {
	return &ScrapeHandler{
		runner:  runner,
		catalog: cat,
	}
}

// ScrapeResponse is the JSON response for scrape endpoints.
type ScrapeResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Count   int              `json:"count"`
	Elapsed string           `json:"elapsed,omitempty"`
	Report  *pipeline.Report `json:"report,omitempty"`
}

// Scrape handles POST /admin/scrape/:etf
// Runs the pipeline once for the ETF family and returns its report.
func (h *ScrapeHandler) Scrape(c echo.Context) error {
	src, err := h.catalog.Source(c.Param("etf"))
	if errors.Is(err, catalog.ErrUnknownETF) {
		return c.JSON(http.StatusNotFound, ScrapeResponse{
			Success: false,
			Message: err.Error(),
		})
	}
	if err != nil {
		return err
	}

	log.Info().Str("etf", src.ID).Msg("Starting manual scrape")
	rep := h.runner.Run(c.Request().Context(), src, "manual")
	elapsed := rep.Duration()

	resp := ScrapeResponse{
		Success: rep.Outcome != pipeline.OutcomeFailed,
		Count:   len(rep.Results),
		Elapsed: elapsed.Round(time.Millisecond).String(),
		Report:  rep,
	}
	switch rep.Outcome {
	case pipeline.OutcomeDone:
		resp.Message = fmt.Sprintf("Successfully upserted %d days", len(rep.Results))
	case pipeline.OutcomeEmpty:
		resp.Message = "Source table has no dated rows"
	default:
		resp.Message = fmt.Sprintf("Scrape failed: %s", rep.Error)
		return c.JSON(statusFor(rep), resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// ScrapeStatus handles GET /admin/scrape/status
// Returns the last report of every ETF family that ran.
func (h *ScrapeHandler) ScrapeStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.runner.LastReports())
}

// statusFor maps a failed run to an HTTP status: upstream problems are
// gateway errors, everything else is internal.
func statusFor(rep *pipeline.Report) int {
	switch rep.FailedStage {
	case pipeline.StateFetching, pipeline.StateExtracting:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
