package handlers

import (
	"net/http"

	"intakeflow/internal/app"
	"intakeflow/internal/http/response"
)

type PositionHandler struct {
	catalog *app.CatalogService
}

func NewPositionHandler(catalog *app.CatalogService) *PositionHandler {
	return &PositionHandler{catalog: catalog}
}

func (h *PositionHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.ListActive(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *PositionHandler) Get(w http.ResponseWriter, r *http.Request) {
	positionID, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	pos, err := h.catalog.Get(r.Context(), positionID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, pos)
}
