package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

type validateRequest struct {
	Instructions string `json:"instructions"`
	AgentType    string `json:"agentType"`
	AgentRole    string `json:"agentRole"`
}

// ValidateInstructions checks user-authored agent instructions and returns
// the verdict. Rejections respond 422 with the failing stage and its issues.
func (a *App) ValidateInstructions(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.AgentType) == "" {
		req.AgentType = "custom"
	}

	verdict, err := a.Validator.Validate(r.Context(), req.Instructions, req.AgentType, req.AgentRole)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: validation failed")
		a.error(w, http.StatusInternalServerError, "validation failed")
		return
	}
	if !verdict.Valid {
		a.json(w, http.StatusUnprocessableEntity, verdict)
		return
	}
	a.json(w, http.StatusOK, verdict)
}
