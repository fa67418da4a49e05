package report

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angola-gov/vigilancia/internal/case/domain"
	"github.com/angola-gov/vigilancia/internal/shared/errors"
)

// Handler provides HTTP handlers for exports and patient cards
type Handler struct {
	exporter *Exporter
}

// NewHandler creates a new report handler
func NewHandler(exporter *Exporter) *Handler {
	return &Handler{exporter: exporter}
}

// Routes registers the report routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/cases/csv", h.ExportCSV)
	r.Get("/cases/xlsx", h.ExportXLSX)
	r.Get("/cases/{caseID}/card", h.PatientCard)

	return r
}

func parseFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()

	filter := domain.ListFilter{
		Province: q.Get("province"),
		Search:   q.Get("search"),
	}

	if v := q.Get("disease_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.DiseaseID = &id
		}
	}
	if v := q.Get("status"); v != "" {
		status := domain.CaseStatus(v)
		filter.Status = &status
	}
	if v := q.Get("start_date"); v != "" {
		if d, err := domain.ParseDate(v); err == nil {
			filter.StartDate = &d
		}
	}
	if v := q.Get("end_date"); v != "" {
		if d, err := domain.ParseDate(v); err == nil {
			filter.EndDate = &d
		}
	}

	return filter
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ExportFilename("csv")))

	if err := h.exporter.WriteCSV(r.Context(), w, parseFilter(r)); err != nil {
		// Headers are already out; the broken download is all we can signal.
		return
	}
}

func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", ExportFilename("xlsx")))

	if err := h.exporter.WriteXLSX(r.Context(), w, parseFilter(r)); err != nil {
		return
	}
}

func (h *Handler) PatientCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil {
		writeError(w, errors.BadRequest("invalid case ID"))
		return
	}

	card, err := h.exporter.Card(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	if appErr, ok := err.(*errors.AppError); ok {
		w.WriteHeader(appErr.HTTPStatus)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   appErr.Message,
			"code":    appErr.Code,
			"details": appErr.Details,
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
}
