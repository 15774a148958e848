package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"geodash/internal/services"

	"github.com/go-chi/chi/v5"
)

// writeJSON encodes a response payload.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// writePNG sends a rendered chart or overlay.
func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// serviceError maps aggregation failures to HTTP statuses.
func serviceError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNoFeatures) {
		http.Error(w, "Nenhum dado encontrado para os filtros selecionados", http.StatusNotFound)
		return
	}
	http.Error(w, "Error processing request", http.StatusInternalServerError)
}

// surveyFilters pulls the shared area/neighborhood filter parameters.
func surveyFilters(r *http.Request) (string, []string) {
	q := r.URL.Query()
	return q.Get("area"), q["bairro"]
}

// SurveyHandler serves one survey-backed dashboard (water or drainage).
type SurveyHandler struct {
	service *services.SurveyService
	charts  *services.ChartService
}

// NewSurveyHandler creates a new SurveyHandler instance
func NewSurveyHandler(service *services.SurveyService, charts *services.ChartService) *SurveyHandler {
	return &SurveyHandler{service: service, charts: charts}
}

// HandleOptions returns the dependent filter choices.
func (h *SurveyHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	area, _ := surveyFilters(r)
	writeJSON(w, http.StatusOK, h.service.Options(area))
}

// HandleSummary returns the indicators and pie aggregations.
func (h *SurveyHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	area, bairros := surveyFilters(r)
	writeJSON(w, http.StatusOK, h.service.Summary(area, bairros))

	log.Printf("Request processed in %v", time.Since(startTime))
}

// HandleMap returns the polygon-overlay map document.
func (h *SurveyHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	area, bairros := surveyFilters(r)
	doc, err := h.service.MapDoc(area, bairros)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleChart renders one pie chart as PNG.
func (h *SurveyHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	area, bairros := surveyFilters(r)
	breakdown, err := h.service.PieData(area, bairros, chi.URLParam(r, "field"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := h.charts.PiePNG(breakdown)
	if err != nil {
		serviceError(w, err)
		return
	}
	writePNG(w, data)
}

// PolesHandler serves the street-light dashboard.
type PolesHandler struct {
	service *services.PolesService
	charts  *services.ChartService
}

// NewPolesHandler creates a new PolesHandler instance
func NewPolesHandler(service *services.PolesService, charts *services.ChartService) *PolesHandler {
	return &PolesHandler{service: service, charts: charts}
}

func polesFilters(r *http.Request) (string, string) {
	q := r.URL.Query()
	return q.Get("bairro"), q.Get("potencia")
}

// HandleOptions returns the dependent filter choices.
func (h *PolesHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	bairro, _ := polesFilters(r)
	writeJSON(w, http.StatusOK, h.service.Options(bairro))
}

// HandleSummary returns the pole count and bar aggregations.
func (h *PolesHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	bairro, potencia := polesFilters(r)
	writeJSON(w, http.StatusOK, h.service.Summary(bairro, potencia))

	log.Printf("Request processed in %v", time.Since(startTime))
}

// HandleMap returns the boundary-and-markers map document.
func (h *PolesHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	bairro, potencia := polesFilters(r)
	doc, err := h.service.MapDoc(bairro, potencia, r.URL.Query().Get("cor"))
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleChart renders one bar chart as PNG.
func (h *PolesHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	bairro, potencia := polesFilters(r)
	breakdown, err := h.service.BarData(bairro, potencia, chi.URLParam(r, "kind"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	data, err := h.charts.BarPNG(breakdown)
	if err != nil {
		serviceError(w, err)
		return
	}
	writePNG(w, data)
}
