package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"jobharvest-engine/internal/secrets"
)

type SecretsHandler struct{}

type setSecretReq struct {
	Value string `json:"value"`
}

var allowedAccounts = map[string]bool{
	secrets.AccountFirecrawl:  true,
	secrets.AccountOpenRouter: true,
}

// SetByPath stores a secret in the OS keychain. Expects
// /api/secrets/{account}.
func (h SecretsHandler) SetByPath(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimPrefix(r.URL.Path, "/api/secrets/")
	if !allowedAccounts[account] {
		WriteError(w, r, http.StatusNotFound, "unknown_account", "unknown secret account")
		return
	}

	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	if err := secrets.Set(account, req.Value); err != nil {
		WriteError(w, r, http.StatusBadRequest, "store_failed", "failed to store secret: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
