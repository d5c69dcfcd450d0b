package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig carries the handlers mounted by NewRouter.
type RouterConfig struct {
	Version   string
	Data      *DataHandler
	Artifacts *ArtifactHandler
	// StaticDir is served at / after the API routes. Empty disables static hosting.
	StaticDir string
}

// NewRouter builds the HTTP routes.
func NewRouter(cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", NewHealthHandler(cfg.Version)).Methods("GET")

	router.HandleFunc("/data", cfg.Data.Get).Methods("GET")
	router.HandleFunc("/debug_screenshot", cfg.Artifacts.DebugScreenshot).Methods("GET")
	router.HandleFunc("/dashboard_screenshot", cfg.Artifacts.DashboardScreenshot).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/data", cfg.Data.Get).Methods("GET")
	apiRouter.HandleFunc("/debug", cfg.Artifacts.ListDebug).Methods("GET")

	if cfg.StaticDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir))).Methods("GET", "HEAD")
	}

	return router
}
