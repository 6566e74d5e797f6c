package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"uniicon/internal/pipeline"
	"uniicon/internal/storage"
)

type generateRequest struct {
	Description string `json:"description"`
	Mode        string `json:"mode"`
}

type editRequest struct {
	EditRequest         string `json:"editRequest"`
	OriginalImageURL    string `json:"originalImageUrl"`
	OriginalDescription string `json:"originalDescription"`
}

type stagePayload struct {
	Stage      string `json:"stage"`
	Output     string `json:"output,omitempty"`
	DurationMs int64  `json:"durationMs"`
	Succeeded  bool   `json:"succeeded"`
	Degraded   bool   `json:"degraded,omitempty"`
	Error      string `json:"error,omitempty"`
}

type generateResponse struct {
	Success           bool           `json:"success"`
	ImageURL          string         `json:"imageUrl"`
	SavedPath         string         `json:"savedPath,omitempty"`
	BackgroundRemoved bool           `json:"backgroundRemoved"`
	Mode              string         `json:"mode"`
	FinalPrompt       string         `json:"finalPrompt"`
	Stages            []stagePayload `json:"stages"`
}

// Generate runs the full generation pipeline for a description.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := a.Pipeline.Generate(r.Context(), req.Description)
	if err != nil {
		a.respondPipelineError(w, err, outcome)
		return
	}
	a.respondOutcome(w, r, req.Description, outcome)
}

// Edit runs the edit pipeline against a previously generated icon.
func (a *App) Edit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := a.Pipeline.Edit(r.Context(), req.EditRequest, req.OriginalImageURL, req.OriginalDescription)
	if err != nil {
		a.respondPipelineError(w, err, outcome)
		return
	}
	a.respondOutcome(w, r, req.EditRequest, outcome)
}

func (a *App) respondPipelineError(w http.ResponseWriter, err error, outcome *pipeline.Outcome) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		a.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrGenerationFailed):
		payload := map[string]any{"success": false, "error": err.Error()}
		if outcome != nil {
			payload["stages"] = stagePayloads(outcome.Stages)
		}
		a.json(w, http.StatusInternalServerError, payload)
	default:
		a.Logger.Error().Err(err).Msg("handlers: pipeline failed")
		a.error(w, http.StatusInternalServerError, "failed to generate image")
	}
}

func (a *App) respondOutcome(w http.ResponseWriter, r *http.Request, description string, outcome *pipeline.Outcome) {
	// The persisted copy is a backup; a save failure never fails the request.
	var savedPath string
	if a.Store != nil {
		key := storage.IconKey(description, time.Now())
		if saved, err := a.Store.Write(r.Context(), key, outcome.Image); err != nil {
			a.Logger.Warn().Err(err).Msg("handlers: failed to persist generated icon")
		} else {
			savedPath = "/generated/" + saved
		}
	}

	a.json(w, http.StatusOK, generateResponse{
		Success:           true,
		ImageURL:          "data:image/png;base64," + base64.StdEncoding.EncodeToString(outcome.Image),
		SavedPath:         savedPath,
		BackgroundRemoved: outcome.BackgroundRemoved,
		Mode:              string(outcome.Mode),
		FinalPrompt:       outcome.FinalPrompt,
		Stages:            stagePayloads(outcome.Stages),
	})
}

func stagePayloads(stages []pipeline.StageResult) []stagePayload {
	out := make([]stagePayload, 0, len(stages))
	for _, s := range stages {
		out = append(out, stagePayload{
			Stage:      string(s.Stage),
			Output:     s.Output,
			DurationMs: s.Duration.Milliseconds(),
			Succeeded:  s.Succeeded,
			Degraded:   s.Degraded,
			Error:      s.Err,
		})
	}
	return out
}
