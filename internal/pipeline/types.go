package pipeline

import (
	"context"
	"errors"
	"time"
)

// Stage names a pipeline step in the provenance trail.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageInterpret Stage = "interpret"
	StagePlan      Stage = "plan"
	StageGenerate  Stage = "generate"
	StageRemoveBg  Stage = "removebg"
)

// Mode reports how the final prompt was produced.
type Mode string

const (
	// ModeComplete means every prompt-building stage ran at full capability.
	ModeComplete Mode = "complete"
	// ModeFallback means at least one prompt-building stage degraded or the
	// synthesis fallback path was taken.
	ModeFallback Mode = "fallback"
)

// Sentinel errors surfaced by the orchestrator.
var (
	// ErrInvalidRequest is returned before any stage runs when the request
	// carries no usable description or edit instruction.
	ErrInvalidRequest = errors.New("pipeline: invalid request")
	// ErrGenerationFailed is returned when image synthesis failed on both the
	// primary prompt and the single fallback prompt.
	ErrGenerationFailed = errors.New("pipeline: image generation failed")
)

// StageResult records one executed stage. The trail is append-only: results
// are recorded in execution order and never mutated afterwards.
type StageResult struct {
	Stage     Stage         `json:"stage"`
	Output    string        `json:"output,omitempty"`
	Duration  time.Duration `json:"duration"`
	Succeeded bool          `json:"succeeded"`
	Degraded  bool          `json:"degraded,omitempty"`
	Err       string        `json:"error,omitempty"`
}

// Outcome is the single value produced per accepted request. The caller owns
// it; the orchestrator keeps no reference after returning.
type Outcome struct {
	Success           bool          `json:"success"`
	Image             []byte        `json:"-"`
	BackgroundRemoved bool          `json:"backgroundRemoved"`
	Stages            []StageResult `json:"stages"`
	Mode              Mode          `json:"mode"`
	FinalPrompt       string        `json:"finalPrompt"`
}

// TextCapability is a reasoning step that transforms text. Implementations
// degrade to an identity pass-through instead of failing: a missing
// configuration or a remote error yields Degraded(input, reason).
type TextCapability interface {
	Invoke(ctx context.Context, input string) Result[string]
	Configured() bool
}

// SynthesisRequest carries one image synthesis call.
type SynthesisRequest struct {
	Prompt         string
	NegativePrompt string
	GuidanceScale  float64
}

// ImageSynthesizer renders a prompt to image bytes. There is no identity
// substitute for an image, so every failure is a hard error.
type ImageSynthesizer interface {
	Generate(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// RemovalResult is the outcome of a background removal attempt. Soft failures
// keep Removed=false and carry the original bytes back in Data.
type RemovalResult struct {
	Data    []byte
	Removed bool
	Reason  string
}

// BackgroundRemover strips the background from a rendered icon.
type BackgroundRemover interface {
	TestConnection(ctx context.Context) bool
	Remove(ctx context.Context, image []byte) (*RemovalResult, error)
}
