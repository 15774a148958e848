package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"geodash/internal/services"
)

// AgroHandler serves the agronomic interpolation dashboard.
type AgroHandler struct {
	service *services.AgroService
}

// NewAgroHandler creates a new AgroHandler instance
func NewAgroHandler(service *services.AgroService) *AgroHandler {
	return &AgroHandler{service: service}
}

// agroParams pulls the filter and interpolation settings, applying the
// dashboard defaults.
func (h *AgroHandler) agroParams(r *http.Request) (talhao, element, method string, resolution int) {
	q := r.URL.Query()

	talhao = q.Get("talhao")
	if talhao == "" {
		talhao = services.AllPlots
	}

	element = q.Get("element")
	if element == "" {
		if elements := h.service.Options().Elementos; len(elements) > 0 {
			element = elements[0]
		}
	}

	method = q.Get("method")
	if method == "" {
		method = services.MethodRBF
	}

	resolution = services.ResolutionDefault
	if raw := q.Get("resolution"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			resolution = v
		}
	}
	return talhao, element, method, resolution
}

// HandleOptions returns the plot, element and interpolation choices.
func (h *AgroHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Options())
}

// HandleSummary returns the sample statistics panel.
func (h *AgroHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	talhao, element, _, _ := h.agroParams(r)
	summary, err := h.service.Summary(talhao, element)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)

	log.Printf("Request processed in %v", time.Since(startTime))
}

// HandleMap returns the interpolation map document.
func (h *AgroHandler) HandleMap(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	talhao, element, method, resolution := h.agroParams(r)
	doc, err := h.service.MapDoc(talhao, element, method, resolution, "/api/agro/overlay.png")
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)

	log.Printf("Interpolation map (%s, %s) processed in %v", element, method, time.Since(startTime))
}

// HandleOverlay renders the masked interpolation raster as PNG.
func (h *AgroHandler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	talhao, element, method, resolution := h.agroParams(r)
	surface, _, err := h.service.Surface(talhao, element, method, resolution)
	if err != nil {
		serviceError(w, err)
		return
	}

	data, err := services.RenderOverlayPNG(surface)
	if err != nil {
		serviceError(w, err)
		return
	}
	writePNG(w, data)

	log.Printf("Overlay (%s, %s, %dpx) rendered in %v", element, surface.Method, resolution, time.Since(startTime))
}
