package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/mauv0809/etf-flows/internal/catalog"
	"github.com/mauv0809/etf-flows/internal/db"
	"github.com/mauv0809/etf-flows/internal/flows"
	"github.com/mauv0809/etf-flows/internal/models"
	"github.com/mauv0809/etf-flows/internal/views"
)

// Handler serves the read side: pages and flow APIs.
type Handler struct {
	store      db.Store
	catalog    *catalog.Catalog
	defaultETF string
}

func New(store db.Store, cat *catalog.Catalog, defaultETF string) *Handler {
	return &Handler{store: store, catalog: cat, defaultETF: defaultETF}
}

// FlowsResponse is the read API payload.
type FlowsResponse struct {
	ETF     string              `json:"etf"`
	Tickers []models.TickerInfo `json:"tickers"`
	Flows   []models.StoredFlow `json:"flows"`
}

// TableResponse is the grouped table payload.
type TableResponse struct {
	ETF     string              `json:"etf"`
	Tickers []models.TickerInfo `json:"tickers"`
	Years   []flows.YearGroup   `json:"years"`
}

// ChartsResponse carries the cumulative and composition series.
type ChartsResponse struct {
	ETF        string              `json:"etf"`
	Tickers    []models.TickerInfo `json:"tickers"`
	Cumulative []models.DayRecord  `json:"cumulative"`
	Shares     []flows.SharePoint  `json:"shares"`
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Index renders the page of the default ETF family.
func (h *Handler) Index(c echo.Context) error {
	return h.page(c, h.defaultETF)
}

// ETFPage handles GET /etfs/:etf
func (h *Handler) ETFPage(c echo.Context) error {
	return h.page(c, c.Param("etf"))
}

func (h *Handler) page(c echo.Context, etf string) error {
	src, stored, err := h.load(c, etf)
	if err != nil {
		return err
	}
	records, tickers := recordsOf(src, stored)

	return Render(c, http.StatusOK, views.FlowsPage(views.FlowsPageData{
		ETF:     src.ID,
		Name:    src.Name,
		ETFs:    h.catalog.IDs(),
		Tickers: tickerInfos(src, tickers),
		Years:   flows.Group(flows.Rank(records), tickers),
	}))
}

// Flows handles GET /api/etfs/:etf/flows
// Returns every stored day ordered by close of business.
func (h *Handler) Flows(c echo.Context) error {
	src, stored, err := h.load(c, c.Param("etf"))
	if err != nil {
		return err
	}
	_, tickers := recordsOf(src, stored)

	return c.JSON(http.StatusOK, FlowsResponse{
		ETF:     src.ID,
		Tickers: tickerInfos(src, tickers),
		Flows:   stored,
	})
}

// Table handles GET /api/etfs/:etf/table
func (h *Handler) Table(c echo.Context) error {
	src, stored, err := h.load(c, c.Param("etf"))
	if err != nil {
		return err
	}
	records, tickers := recordsOf(src, stored)

	return c.JSON(http.StatusOK, TableResponse{
		ETF:     src.ID,
		Tickers: tickerInfos(src, tickers),
		Years:   flows.Group(flows.Rank(records), tickers),
	})
}

// Charts handles GET /api/etfs/:etf/charts
func (h *Handler) Charts(c echo.Context) error {
	src, stored, err := h.load(c, c.Param("etf"))
	if err != nil {
		return err
	}
	records, tickers := recordsOf(src, stored)
	cumulative := flows.Cumulate(flows.SortByDate(records), tickers)

	return c.JSON(http.StatusOK, ChartsResponse{
		ETF:        src.ID,
		Tickers:    tickerInfos(src, tickers),
		Cumulative: cumulative,
		Shares:     flows.PercentSeries(cumulative, tickers),
	})
}

// load resolves the ETF family and reads its stored days.
func (h *Handler) load(c echo.Context, etf string) (*catalog.Source, []models.StoredFlow, error) {
	src, err := h.catalog.Source(etf)
	if errors.Is(err, catalog.ErrUnknownETF) {
		return nil, nil, echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		return nil, nil, err
	}

	stored, err := h.store.ListFlows(c.Request().Context(), src.ID)
	if err != nil {
		log.Error().Err(err).Str("etf", src.ID).Msg("listing flows")
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to load flows")
	}
	if stored == nil {
		stored = []models.StoredFlow{}
	}
	return src, stored, nil
}

// recordsOf converts stored rows to day records and discovers their
// tickers, oldest day first, in display order.
func recordsOf(src *catalog.Source, stored []models.StoredFlow) ([]models.DayRecord, []string) {
	records := make([]models.DayRecord, 0, len(stored))
	seen := make(map[string]bool)
	var tickers []string
	for _, f := range stored {
		records = append(records, f.Record())

		names := make([]string, 0, len(f.Flows))
		for t := range f.Flows {
			if !seen[t] {
				names = append(names, t)
			}
		}
		sort.Strings(names)
		for _, t := range names {
			seen[t] = true
			tickers = append(tickers, t)
		}
	}
	return records, src.Order(tickers)
}

func tickerInfos(src *catalog.Source, tickers []string) []models.TickerInfo {
	out := make([]models.TickerInfo, 0, len(tickers))
	for _, t := range tickers {
		out = append(out, src.Lookup(t))
	}
	return out
}
