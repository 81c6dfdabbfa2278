// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mtandao/campaignhub-backend/internal/middleware"
	"github.com/mtandao/campaignhub-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Validate        *validator.Validate
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AccountID string `json:"account_id" validate:"required"`
		service.CreateCampaignInput
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid body"})
		return
	}
	if err := c.Validate.Struct(body); err != nil {
		writeError(w, err)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body.AccountID, body.CreateCampaignInput)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Campaign created successfully.",
		"campaign": campaign,
	})
}

// ListCampaigns federates across the caller's accounts unless account_id
// narrows it to one.
func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := service.ListQuery{
		AccountID:     params.Get("account_id"),
		Page:          atoiDefault(params.Get("page"), 1),
		Limit:         atoiDefault(params.Get("limit"), 10),
		Search:        params.Get("search"),
		Status:        params.Get("status"),
		SortField:     params.Get("sort"),
		SortDirection: atoiDefault(params.Get("direction"), 0),
	}

	list, err := c.CampaignService.ListCampaigns(r.Context(), middleware.OwnerID(r.Context()), q)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "account_id is required"})
		return
	}

	campaign, err := c.CampaignService.DeleteCampaign(r.Context(), accountID, chi.URLParam(r, "campaignId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Campaign deleted successfully.",
		"campaign": campaign,
	})
}
