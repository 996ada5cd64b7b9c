// Package metrics serves ratios, FCFF, WACC and single metric resolutions
// over HTTP.
package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"statement_metrics/pkg/core/analysis"
	"statement_metrics/pkg/core/outcome"
	"statement_metrics/pkg/core/report"
	"statement_metrics/pkg/core/series"
)

type Handler struct {
	engine            *analysis.AnalysisEngine
	open              analysis.Opener
	riskFreeRate      float64
	equityRiskPremium float64
}

func NewHandler(engine *analysis.AnalysisEngine, open analysis.Opener, riskFreeRate, equityRiskPremium float64) *Handler {
	return &Handler{
		engine:            engine,
		open:              open,
		riskFreeRate:      riskFreeRate,
		equityRiskPremium: equityRiskPremium,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type fcffResponse struct {
	Ticker    string           `json:"ticker"`
	TaxSource string           `json:"tax_rate_source,omitempty"`
	Rows      any              `json:"rows,omitempty"`
	Error     *outcome.Failure `json:"error,omitempty"`
}

type waccResponse struct {
	Ticker string           `json:"ticker"`
	Result any              `json:"result,omitempty"`
	Error  *outcome.Failure `json:"error,omitempty"`
}

type point struct {
	Period string   `json:"period"`
	Value  *float64 `json:"value"`
}

type metricResponse struct {
	Ticker string           `json:"ticker"`
	Metric string           `json:"metric"`
	Points []point          `json:"points,omitempty"`
	Error  *outcome.Failure `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

// fail maps a non-Unavailable error: anything from fetching the company's
// data is a bad gateway.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	writeJSON(w, r, http.StatusBadGateway, errorResponse{Error: err.Error()})
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) (*analysis.Company, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))
	if ticker == "" {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "ticker is required"})
		return nil, false
	}
	src, err := h.open(ticker)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	c, err := h.engine.Open(r.Context(), ticker, src)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return c, true
}

// rates reads rf and erp query overrides.
func (h *Handler) rates(r *http.Request) (float64, float64, error) {
	rf, erp := h.riskFreeRate, h.equityRiskPremium
	q := r.URL.Query()
	if v := q.Get("rf"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, errors.New("invalid rf")
		}
		rf = f
	}
	if v := q.Get("erp"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, 0, errors.New("invalid erp")
		}
		erp = f
	}
	return rf, erp, nil
}

func (h *Handler) ListMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"metrics": h.engine.Catalog().Names()})
}

func (h *Handler) GetRatios(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(w, r)
	if !ok {
		return
	}
	rep, err := c.Ratios.Report(r.Context(), c.Ticker)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rep)
}

func (h *Handler) GetFCFF(w http.ResponseWriter, r *http.Request) {
	c, ok := h.company(w, r)
	if !ok {
		return
	}
	resp := fcffResponse{Ticker: c.Ticker}
	comps, err := c.FCFF.Compute(r.Context())
	switch {
	case err == nil:
		resp.Rows = comps.Rows()
		resp.TaxSource = comps.TaxSource
	case outcome.IsUnavailable(err):
		resp.Error = outcome.Describe(err)
	default:
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (h *Handler) GetWACC(w http.ResponseWriter, r *http.Request) {
	rf, erp, err := h.rates(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	c, ok := h.company(w, r)
	if !ok {
		return
	}
	resp := waccResponse{Ticker: c.Ticker}
	res, err := c.WACC.Calculate(r.Context(), rf, erp)
	switch {
	case err == nil:
		resp.Result = res
	case outcome.IsUnavailable(err):
		resp.Error = outcome.Describe(err)
	default:
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// GetMetric resolves one catalog metric. Unknown metric names are 404;
// other unavailable outcomes are reported in the body with 200.
func (h *Handler) GetMetric(w http.ResponseWriter, r *http.Request) {
	metric := chi.URLParam(r, "metric")
	if _, ok := h.engine.Catalog().Lookup(metric); !ok {
		writeJSON(w, r, http.StatusNotFound, metricResponse{
			Metric: metric,
			Error:  outcome.Describe(outcome.New(outcome.UndefinedMetric, metric, "not in catalog")),
		})
		return
	}
	c, ok := h.company(w, r)
	if !ok {
		return
	}
	resp := metricResponse{Ticker: c.Ticker, Metric: metric}
	s, err := c.Session.Resolve(r.Context(), metric)
	switch {
	case err == nil:
		resp.Points = points(s)
	case outcome.IsUnavailable(err):
		resp.Error = outcome.Describe(err)
	default:
		fail(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func points(s series.Series) []point {
	out := make([]point, 0, s.Len())
	for _, p := range s.Periods() {
		pt := point{Period: p.Label}
		if v, ok := s.Get(p.Label); ok {
			pt.Value = &v
		}
		out = append(out, pt)
	}
	return out
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) (*analysis.CompanyAnalysis, bool) {
	rf, erp, err := h.rates(r)
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}
	c, ok := h.company(w, r)
	if !ok {
		return nil, false
	}
	a, err := c.Analyze(r.Context(), rf, erp)
	if err != nil {
		fail(w, r, err)
		return nil, false
	}
	return a, true
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyze(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	a, ok := h.analyze(w, r)
	if !ok {
		return
	}
	page, err := report.Page(a.ReportInput())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render report")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "failed to render report"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(page)); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to write report")
	}
}
