package handlers

import (
	"net/http"

	"github.com/diewo77/formfill/httpx"
	"github.com/diewo77/formfill/internal/store"
)

type DatapointHandler struct {
	Store *store.Store
}

func NewDatapointHandler(st *store.Store) *DatapointHandler {
	return &DatapointHandler{Store: st}
}

// List: GET /api/datapoints
func (h *DatapointHandler) List(w http.ResponseWriter, r *http.Request) {
	dps, err := h.Store.ListDatapoints()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_datapoints")
		return
	}
	httpx.JSON(w, http.StatusOK, dps)
}
