package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/diewo77/formfill/httpx"
	"github.com/diewo77/formfill/internal/models"
	"github.com/diewo77/formfill/internal/pdf"
	"github.com/diewo77/formfill/internal/services"
	"github.com/diewo77/formfill/internal/storage"
	"github.com/diewo77/formfill/internal/store"
)

const maxUploadBytes = 32 << 20

type TemplateHandler struct {
	Store    *store.Store
	Files    *storage.Dir
	Mappings *services.MappingService
	Renderer *services.GenerateService
}

func NewTemplateHandler(st *store.Store, files *storage.Dir, ms *services.MappingService, gs *services.GenerateService) *TemplateHandler {
	return &TemplateHandler{Store: st, Files: files, Mappings: ms, Renderer: gs}
}

// Upload: POST /api/templates/upload
// Accepts a single multipart file, stores the bytes and creates the row.
// The page count is best effort: a PDF that fails to parse still yields a
// template row with pages=1, matching the permissive upload policy.
func (h *TemplateHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "no_file")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "no_file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed")
		return
	}
	key, err := h.Files.Save(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "upload_failed")
		return
	}
	pages := 1
	if geo, err := pdf.Inspect(data); err == nil {
		pages = geo.PageCount
	} else {
		log.Printf("upload: page count for %s: %v", header.Filename, err)
	}
	tpl := models.Template{OriginalFilename: header.Filename, StoredPath: key, Pages: pages}
	if err := h.Store.CreateTemplate(&tpl); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "create_template_failed")
		return
	}
	httpx.JSON(w, http.StatusOK, tpl)
}

// List: GET /api/templates – newest first
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Store.ListTemplates()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_templates")
		return
	}
	httpx.JSON(w, http.StatusOK, ts)
}

// SaveMappings: POST /api/templates/{id}/mappings
func (h *TemplateHandler) SaveMappings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req struct {
		Mappings json.RawMessage `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	var inputs []services.MappingInput
	if len(req.Mappings) == 0 || string(req.Mappings) == "null" {
		httpx.JSONError(w, http.StatusBadRequest, "mappings_array_required")
		return
	}
	if err := json.Unmarshal(req.Mappings, &inputs); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "mappings_array_required")
		return
	}
	switch err := h.Mappings.Save(id, inputs); {
	case errors.Is(err, services.ErrTemplateNotFound):
		httpx.JSONError(w, http.StatusNotFound, "template_not_found")
	case errors.Is(err, services.ErrInvalidMapping):
		httpx.JSONError(w, http.StatusBadRequest, "invalid_mappings")
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "save_mappings_failed")
	default:
		httpx.JSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// GetMappings: GET /api/templates/{id}/mappings
func (h *TemplateHandler) GetMappings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	ms, err := h.Mappings.Get(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_mappings")
		return
	}
	httpx.JSON(w, http.StatusOK, ms)
}

// Generate: POST /api/templates/{id}/generate
// Streams a zip with one filled PDF per successfully rendered company. All
// structured failures happen before the first byte is written; once the
// stream is open, errors can only be logged.
func (h *TemplateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	var req struct {
		CompanyIDs []uint `json:"companyIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	batch, err := h.Renderer.NewBatch(id, req.CompanyIDs)
	switch {
	case errors.Is(err, services.ErrNoCompanies):
		httpx.JSONError(w, http.StatusBadRequest, "companyIds_required")
		return
	case errors.Is(err, services.ErrTemplateNotFound):
		httpx.JSONError(w, http.StatusNotFound, "template_not_found")
		return
	case errors.Is(err, services.ErrTemplateFileMissing):
		// distinct from 404: the row exists but the bytes were wiped,
		// re-uploading the template is the remedy
		httpx.JSONError(w, http.StatusGone, "template_file_missing")
		return
	case err != nil:
		httpx.JSONError(w, http.StatusInternalServerError, "generate_failed")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+batch.Filename()+`"`)
	w.WriteHeader(http.StatusOK)
	if err := batch.WriteZip(r.Context(), w); err != nil {
		// headers and bytes are already on the wire; the client observes
		// a truncated transfer
		log.Printf("generate: stream template %d: %v", id, err)
	}
}
