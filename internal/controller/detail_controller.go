// internal/controller/detail_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtandao/campaignhub-backend/internal/service"
)

type DetailController struct {
	DetailService *service.DetailService
}

func (c *DetailController) GenerateDetails(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "account_id is required"})
		return
	}

	details, err := c.DetailService.GenerateDetails(r.Context(), accountID, chi.URLParam(r, "campaignId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Campaign details generated successfully.",
		"details": details,
	})
}

func (c *DetailController) GetCampaignDetail(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "account_id is required"})
		return
	}

	view, err := c.DetailService.GetCampaignDetail(r.Context(), accountID, chi.URLParam(r, "campaignId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (c *DetailController) UpdateDetailStatus(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "account_id is required"})
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid body"})
		return
	}

	err := c.DetailService.MarkDetailStatus(r.Context(), accountID, chi.URLParam(r, "detailId"), body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Detail status updated."})
}
