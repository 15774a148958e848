package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"geodash/internal/config"
	"geodash/internal/handlers"
	"geodash/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
)

const (
	AppVersion = "1.0.0"
)

func main() {
	log.Printf("Starting Geo Dashboards v%s", AppVersion)

	datasets := config.GetDatasetConfig()

	// Check that the local dataset files exist
	requireDataset("water GeoJSON", datasets.WaterGeoJSON)
	requireDataset("drainage GeoJSON", datasets.DrainageGeoJSON)
	requireDataset("poles workbook", datasets.PolesWorkbook)
	requireDataset("agro workbook", datasets.AgroWorkbook)

	// Initialize services
	charts := services.NewChartService()

	waterService, err := services.NewSurveyService(config.GetDataFilePath(datasets.WaterGeoJSON), services.WaterSpec())
	if err != nil {
		log.Fatalf("Error loading water dataset: %v", err)
	}
	drainageService, err := services.NewSurveyService(config.GetDataFilePath(datasets.DrainageGeoJSON), services.DrainageSpec())
	if err != nil {
		log.Fatalf("Error loading drainage dataset: %v", err)
	}
	polesService, err := services.NewPolesService(
		config.GetDataFilePath(datasets.PolesWorkbook),
		config.GetDataFilePath(datasets.PolesBoundaries))
	if err != nil {
		log.Fatalf("Error loading poles dataset: %v", err)
	}
	agroService, err := services.NewAgroService(
		config.GetDataFilePath(datasets.AgroWorkbook),
		config.GetDataFilePath(datasets.PlotShapefile),
		datasets.PlotColumn)
	if err != nil {
		log.Fatalf("Error loading agro dataset: %v", err)
	}

	// Set up routes
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	waterHandler := handlers.NewSurveyHandler(waterService, charts)
	drainageHandler := handlers.NewSurveyHandler(drainageService, charts)
	polesHandler := handlers.NewPolesHandler(polesService, charts)
	agroHandler := handlers.NewAgroHandler(agroService)

	mountSurvey := func(path string, h *handlers.SurveyHandler) {
		r.Route(path, func(r chi.Router) {
			r.Get("/options", h.HandleOptions)
			r.Get("/summary", h.HandleSummary)
			r.Get("/map", h.HandleMap)
			r.Get("/chart/{field}.png", h.HandleChart)
		})
	}
	mountSurvey("/api/water", waterHandler)
	mountSurvey("/api/drainage", drainageHandler)

	r.Route("/api/poles", func(r chi.Router) {
		r.Get("/options", polesHandler.HandleOptions)
		r.Get("/summary", polesHandler.HandleSummary)
		r.Get("/map", polesHandler.HandleMap)
		r.Get("/chart/{kind}.png", polesHandler.HandleChart)
	})

	r.Route("/api/agro", func(r chi.Router) {
		r.Get("/options", agroHandler.HandleOptions)
		r.Get("/summary", agroHandler.HandleSummary)
		r.Get("/map", agroHandler.HandleMap)
		r.Get("/overlay.png", agroHandler.HandleOverlay)
	})

	// The service-request form needs Postgres; without it the rest of the
	// dashboards still serve.
	if solicitacaoHandler := setupSolicitacoes(datasets.UploadDir); solicitacaoHandler != nil {
		r.Route("/api/solicitacoes", func(r chi.Router) {
			r.Get("/", solicitacaoHandler.HandleList)
			r.Post("/", solicitacaoHandler.HandleCreate)
		})
		r.Handle("/static/uploads/*", http.StripPrefix("/static/uploads/",
			http.FileServer(http.Dir(datasets.UploadDir))))
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server starting on port %s...", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}

// requireDataset aborts startup when a local dataset file is missing.
// Remote datasets are checked lazily at load time.
func requireDataset(name, location string) {
	if config.IsRemote(location) {
		log.Printf("Using remote %s at: %s", name, location)
		return
	}
	path := config.GetDataFilePath(location)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Fatalf("%s file not found at: %s", name, path)
	}
	log.Printf("Using %s file at: %s", name, path)
}

// setupSolicitacoes connects to Postgres and bootstraps the request table.
// A missing database only disables the form endpoints.
func setupSolicitacoes(uploadDir string) *handlers.SolicitacaoHandler {
	dbConfig := config.GetDBConfig()

	db, err := sql.Open("postgres", dbConfig.ConnString())
	if err != nil {
		log.Printf("Warning: failed to open database: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Printf("Warning: database unavailable, service-request form disabled: %v", err)
		return nil
	}

	store := services.NewSolicitacaoService(db, dbConfig, uploadDir)
	if err := store.Bootstrap(ctx); err != nil {
		log.Printf("Warning: failed to bootstrap request table: %v", err)
		return nil
	}

	log.Printf("Service-request form connected to %s/%s", dbConfig.Host, dbConfig.Database)
	return handlers.NewSolicitacaoHandler(store)
}
