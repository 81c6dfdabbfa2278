// internal/controller/account_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mtandao/campaignhub-backend/internal/middleware"
	"github.com/mtandao/campaignhub-backend/internal/service"
)

type AccountController struct {
	AccountService *service.AccountService
	Validate       *validator.Validate
}

func (c *AccountController) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body service.CreateAccountInput
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid body"})
		return
	}
	if err := c.Validate.Struct(body); err != nil {
		writeError(w, err)
		return
	}

	account, err := c.AccountService.CreateAccount(r.Context(), middleware.OwnerID(r.Context()), body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created successfully.",
		"account": account,
	})
}

func (c *AccountController) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 10)

	list, err := c.AccountService.ListAccounts(r.Context(), middleware.OwnerID(r.Context()), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

func (c *AccountController) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	summary, err := c.AccountService.GetAccount(r.Context(), middleware.OwnerID(r.Context()), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"data": summary})
}

func (c *AccountController) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	account, err := c.AccountService.DeleteAccount(r.Context(), middleware.OwnerID(r.Context()), accountID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Account deleted successfully.",
		"account": account,
	})
}

func (c *AccountController) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	var body struct {
		Delta int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid body"})
		return
	}

	if err := c.AccountService.AdjustBalance(r.Context(), middleware.OwnerID(r.Context()), accountID, body.Delta); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Balance adjusted."})
}
