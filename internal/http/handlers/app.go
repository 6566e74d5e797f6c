// Package handlers holds the HTTP surface of the icon service.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"uniicon/internal/infra"
	"uniicon/internal/pipeline"
	"uniicon/internal/providers/removebg"
	"uniicon/internal/storage"
	"uniicon/internal/validate"
)

// IconPipeline is the orchestrator surface the handlers need.
type IconPipeline interface {
	Generate(ctx context.Context, description string) (*pipeline.Outcome, error)
	Edit(ctx context.Context, editRequest, originalImageURL, originalDescription string) (*pipeline.Outcome, error)
}

// InstructionsValidator checks user-authored agent instructions.
type InstructionsValidator interface {
	Validate(ctx context.Context, instructions, agentType, agentRole string) (*validate.Verdict, error)
}

// RemovalStatus is the slice of the removal client the status endpoint uses.
type RemovalStatus interface {
	TestConnection(ctx context.Context) bool
	RemainingQuota(ctx context.Context) (*removebg.Quota, error)
}

// App bundles the handler dependencies.
type App struct {
	Pipeline  IconPipeline
	Validator InstructionsValidator
	Removal   RemovalStatus
	Store     *storage.FileStore
	Logger    *infra.Logger

	// Capabilities maps role name to whether an agent id is configured,
	// reported by the status endpoint.
	Capabilities    map[string]bool
	ImageConfigured bool
}

// NewApp wires the handler container.
func NewApp(p IconPipeline, v InstructionsValidator, r RemovalStatus, store *storage.FileStore, logger *infra.Logger) *App {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &App{Pipeline: p, Validator: v, Removal: r, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, message string) {
	a.json(w, code, map[string]any{"success": false, "error": message})
}
