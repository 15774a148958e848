package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"geodash/internal/models"
	"geodash/internal/services"
)

// SolicitacaoStore is the storage surface the form handler needs.
type SolicitacaoStore interface {
	Insert(ctx context.Context, req *models.Solicitacao) error
	List(ctx context.Context) ([]models.Solicitacao, error)
	SavePhoto(filename string, r io.Reader) (string, error)
}

// SolicitacaoHandler serves the citizen service-request form.
type SolicitacaoHandler struct {
	store SolicitacaoStore
}

// NewSolicitacaoHandler creates a new SolicitacaoHandler instance
func NewSolicitacaoHandler(store SolicitacaoStore) *SolicitacaoHandler {
	return &SolicitacaoHandler{store: store}
}

// HandleCreate accepts the multipart form submission and inserts one
// request row.
func (h *SolicitacaoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.ContentLength > services.MaxPhotoSize {
		http.Error(w, "Arquivo muito grande", http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPhotoSize)
	if err := r.ParseMultipartForm(services.MaxPhotoSize); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Arquivo muito grande", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	rua := strings.TrimSpace(r.FormValue("nome_rua"))
	numero := strings.TrimSpace(r.FormValue("numero"))
	bairro := strings.TrimSpace(r.FormValue("bairro"))
	if rua == "" || numero == "" || bairro == "" {
		http.Error(w, "Por favor, preencha nome da rua, número e bairro", http.StatusBadRequest)
		return
	}

	// The combined coordinate field wins; separate fields are the fallback.
	lat, lon := services.ParseCoordsCombined(r.FormValue("coordenadas"))
	if lat == nil && lon == nil {
		lat = services.ParseCoord(r.FormValue("latitude"))
		lon = services.ParseCoord(r.FormValue("longitude"))
	}

	var situacoes *string
	if values := r.MultipartForm.Value["situacao"]; len(values) > 0 {
		joined := strings.Join(values, ",")
		situacoes = &joined
	}

	var fotoPath *string
	if file, header, err := r.FormFile("foto"); err == nil {
		defer file.Close()
		if header.Filename != "" && services.AllowedPhoto(header.Filename) {
			path, err := h.store.SavePhoto(header.Filename, file)
			if err != nil {
				log.Printf("Warning: error saving photo: %v", err)
			} else {
				fotoPath = &path
			}
		}
	}

	req := &models.Solicitacao{
		Rua:       rua,
		Numero:    numero,
		Bairro:    bairro,
		Latitude:  lat,
		Longitude: lon,
		FotoPath:  fotoPath,
		Situacoes: situacoes,
	}
	if err := h.store.Insert(r.Context(), req); err != nil {
		log.Printf("Error saving request: %v", err)
		http.Error(w, "Erro ao salvar solicitação", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, req)
	log.Printf("Request processed in %v", time.Since(startTime))
}

// HandleList returns all stored requests, newest first.
func (h *SolicitacaoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("Error listing requests: %v", err)
		http.Error(w, "Error processing request", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Solicitacao{}
	}
	writeJSON(w, http.StatusOK, items)
}
