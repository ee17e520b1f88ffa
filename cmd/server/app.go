package main

import (
	"net/http"

	"github.com/diewo77/formfill/httpx"
	"github.com/diewo77/formfill/internal/handlers"
	"github.com/diewo77/formfill/internal/storage"
)

// App is the main application handler that wires all routes.
type App struct {
	mux *http.ServeMux
}

func NewApp(ch *handlers.CompanyHandler, dh *handlers.DatapointHandler, th *handlers.TemplateHandler, files *storage.Dir) *App {
	app := &App{mux: http.NewServeMux()}

	app.mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	app.mux.HandleFunc("GET /api/companies", ch.List)
	app.mux.HandleFunc("GET /api/companies/{id}/values", ch.Values)
	app.mux.HandleFunc("GET /api/datapoints", dh.List)

	app.mux.HandleFunc("POST /api/templates/upload", th.Upload)
	app.mux.HandleFunc("GET /api/templates", th.List)
	app.mux.HandleFunc("POST /api/templates/{id}/mappings", th.SaveMappings)
	app.mux.HandleFunc("GET /api/templates/{id}/mappings", th.GetMappings)
	app.mux.HandleFunc("POST /api/templates/{id}/generate", th.Generate)

	// uploaded templates served as-is, for frontend previews
	app.mux.Handle("GET /storage/", http.StripPrefix("/storage/",
		http.FileServer(http.Dir(files.Root()))))

	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}
