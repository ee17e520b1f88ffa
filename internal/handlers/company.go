package handlers

import (
	"net/http"

	"github.com/diewo77/formfill/httpx"
	"github.com/diewo77/formfill/internal/store"
)

type CompanyHandler struct {
	Store *store.Store
}

func NewCompanyHandler(st *store.Store) *CompanyHandler {
	return &CompanyHandler{Store: st}
}

// List: GET /api/companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies()
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_companies")
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

// Values: GET /api/companies/{id}/values
// Returns one row per datapoint in registry order; datapoints without a
// value row come back with a null value.
func (h *CompanyHandler) Values(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id")
		return
	}
	rows, err := h.Store.GetCompanyValues(id)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_values")
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
