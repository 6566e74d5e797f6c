// Package pipeline sequences the icon generation stages. The orchestrator is
// the only component that decides stage order; capabilities decide how to
// degrade, the orchestrator decides what degradation means for the run.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"uniicon/internal/content"
	"uniicon/internal/infra"
)

// Options wires the orchestrator's capabilities. Extract, Plan, and Interpret
// are required (they may be unconfigured, never nil); Remover may be nil when
// background removal is not deployed.
type Options struct {
	Extract     TextCapability
	Plan        TextCapability
	Interpret   TextCapability
	Synthesizer ImageSynthesizer
	Remover     BackgroundRemover
	Logger      *infra.Logger

	// Negative prompts handed to the synthesizer; defaults match the icon
	// model's standard and emoji presets.
	NegativePrompt      string
	EmojiNegativePrompt string
	GuidanceStandard    float64
	GuidanceExpressive  float64
}

// Orchestrator runs the generation and edit pipelines. It holds no
// per-request state; one instance serves concurrent requests.
type Orchestrator struct {
	extract     TextCapability
	plan        TextCapability
	interpret   TextCapability
	synthesizer ImageSynthesizer
	remover     BackgroundRemover
	logger      *infra.Logger

	negativePrompt      string
	emojiNegativePrompt string
	guidanceStandard    float64
	guidanceExpressive  float64
}

// NewOrchestrator constructs the orchestrator with sane defaults.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	guidanceStandard := opts.GuidanceStandard
	if guidanceStandard == 0 {
		guidanceStandard = 7.5
	}
	guidanceExpressive := opts.GuidanceExpressive
	if guidanceExpressive == 0 {
		guidanceExpressive = 8.5
	}
	return &Orchestrator{
		extract:             opts.Extract,
		plan:                opts.Plan,
		interpret:           opts.Interpret,
		synthesizer:         opts.Synthesizer,
		remover:             opts.Remover,
		logger:              logger,
		negativePrompt:      opts.NegativePrompt,
		emojiNegativePrompt: opts.EmojiNegativePrompt,
		guidanceStandard:    guidanceStandard,
		guidanceExpressive:  guidanceExpressive,
	}
}

// run carries the per-request state. Everything lives in locals of the
// request goroutine; nothing is shared.
type run struct {
	stages         []StageResult
	promptDegraded bool
	fallbackTaken  bool
}

func (r *run) record(stage Stage, output string, started time.Time, succeeded, degraded bool, errMsg string) {
	r.stages = append(r.stages, StageResult{
		Stage:     stage,
		Output:    output,
		Duration:  time.Since(started),
		Succeeded: succeeded,
		Degraded:  degraded,
		Err:       errMsg,
	})
}

// textStage invokes a reasoning capability, records the stage, and returns
// the text the next stage must consume. promptChain marks stages whose
// degradation flips the outcome to fallback mode.
func (o *Orchestrator) textStage(ctx context.Context, r *run, stage Stage, capability TextCapability, input string, promptChain bool) string {
	started := time.Now()
	result := capability.Invoke(ctx, input)
	switch result.Kind() {
	case KindOk:
		r.record(stage, result.Value(), started, true, false, "")
		return result.Value()
	default:
		// Degraded: the designed substitute is the unchanged input.
		if promptChain {
			r.promptDegraded = true
		}
		r.record(stage, result.Value(), started, true, true, result.Reason())
		o.logger.Info().
			Str("stage", string(stage)).
			Str("reason", result.Reason()).
			Msg("pipeline: stage degraded")
		return result.Value()
	}
}

// generateStage synthesizes the image, falling back exactly once to the
// optimized cleaned description when the primary prompt fails.
func (o *Orchestrator) generateStage(ctx context.Context, r *run, prompt, fallbackPrompt, negative string, guidance float64) ([]byte, string, error) {
	started := time.Now()
	image, err := o.synthesizer.Generate(ctx, SynthesisRequest{
		Prompt:         prompt,
		NegativePrompt: negative,
		GuidanceScale:  guidance,
	})
	if err == nil {
		r.record(StageGenerate, describeImage(image), started, true, false, "")
		return image, prompt, nil
	}
	o.logger.Warn().Err(err).Msg("pipeline: generation failed, trying fallback prompt")
	r.record(StageGenerate, "", started, false, false, err.Error())

	r.fallbackTaken = true
	started = time.Now()
	image, fbErr := o.synthesizer.Generate(ctx, SynthesisRequest{
		Prompt:         fallbackPrompt,
		NegativePrompt: negative,
		GuidanceScale:  guidance,
	})
	if fbErr != nil {
		r.record(StageGenerate, "", started, false, false, fbErr.Error())
		return nil, "", fmt.Errorf("%w: %v", ErrGenerationFailed, fbErr)
	}
	r.record(StageGenerate, describeImage(image), started, true, true, "")
	return image, fallbackPrompt, nil
}

// interpretStage describes the rendered image for animation tooling. Purely
// informational; any failure is absorbed.
func (o *Orchestrator) interpretStage(ctx context.Context, r *run, image []byte, prompt string) {
	o.textStage(ctx, r, StageInterpret, o.interpret, buildInterpretPrompt(image, prompt), false)
}

// removeBackgroundStage strips the background when the remover is reachable.
// Every failure keeps the original image and degrades the stage.
func (o *Orchestrator) removeBackgroundStage(ctx context.Context, r *run, image []byte) ([]byte, bool) {
	started := time.Now()
	if o.remover == nil || !o.remover.TestConnection(ctx) {
		r.record(StageRemoveBg, "background removal unavailable", started, true, true, "")
		return image, false
	}
	result, err := o.remover.Remove(ctx, image)
	if err != nil {
		o.logger.Warn().Err(err).Msg("pipeline: background removal failed, keeping original")
		r.record(StageRemoveBg, "", started, true, true, err.Error())
		return image, false
	}
	if !result.Removed {
		r.record(StageRemoveBg, result.Reason, started, true, true, "")
		return result.Data, false
	}
	r.record(StageRemoveBg, describeImage(result.Data), started, true, false, "")
	return result.Data, true
}

func (o *Orchestrator) finish(r *run, image []byte, finalPrompt string, removed bool) *Outcome {
	mode := ModeComplete
	if r.promptDegraded || r.fallbackTaken {
		mode = ModeFallback
	}
	return &Outcome{
		Success:           true,
		Image:             image,
		BackgroundRemoved: removed,
		Stages:            r.stages,
		Mode:              mode,
		FinalPrompt:       finalPrompt,
	}
}

// Generate runs the full generation pipeline for a fresh description:
// screen, extract, plan, optimize, synthesize, interpret, remove background.
func (o *Orchestrator) Generate(ctx context.Context, description string) (*Outcome, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalidRequest)
	}

	screening := content.Screen(description)
	if !screening.Clean {
		o.logger.Info().
			Int("flagged", len(screening.Flagged)).
			Msg("pipeline: description screened, using substituted text")
	}
	cleaned := screening.CleanedText

	// Emoji-style requests get a specialized base prompt and the expressive
	// synthesis preset; they still run through the reasoning chain.
	input := cleaned
	negative := o.negativePrompt
	guidance := o.guidanceStandard
	if emoji := content.DetectEmojiRequest(cleaned); emoji.IsEmoji {
		input = content.BuildEmojiPrompt(emoji, cleaned)
		negative = o.emojiNegativePrompt
		guidance = o.guidanceExpressive
		o.logger.Info().Float64("confidence", emoji.Confidence).Msg("pipeline: emoji request detected")
	}

	r := &run{}
	extracted := o.textStage(ctx, r, StageExtract, o.extract, input, true)
	planned := o.textStage(ctx, r, StagePlan, o.plan, extracted, true)

	finalPrompt := content.Optimize(planned)
	fallbackPrompt := content.Optimize(cleaned)
	image, usedPrompt, err := o.generateStage(ctx, r, finalPrompt, fallbackPrompt, negative, guidance)
	if err != nil {
		return &Outcome{Success: false, Stages: r.stages, Mode: ModeFallback, FinalPrompt: finalPrompt}, err
	}

	o.interpretStage(ctx, r, image, usedPrompt)
	image, removed := o.removeBackgroundStage(ctx, r, image)
	return o.finish(r, image, usedPrompt, removed), nil
}

// Edit runs the edit pipeline: interpret the requested change against the
// original, then optimize, synthesize, and remove the background.
func (o *Orchestrator) Edit(ctx context.Context, editRequest, originalImageURL, originalDescription string) (*Outcome, error) {
	editRequest = strings.TrimSpace(editRequest)
	if editRequest == "" {
		return nil, fmt.Errorf("%w: edit request is required", ErrInvalidRequest)
	}

	screening := content.Screen(editRequest)
	cleaned := screening.CleanedText

	r := &run{}
	directives := o.textStage(ctx, r, StageInterpret, o.interpret,
		buildEditPrompt(cleaned, originalImageURL, originalDescription), true)

	// The identity substitute of a degraded interpret is the raw edit prompt,
	// which is not a usable synthesis prompt; rebuild one from the request
	// and the original description instead.
	base := directives
	if last := r.stages[len(r.stages)-1]; last.Degraded {
		base = joinNonEmpty(originalDescription, cleaned)
	}

	finalPrompt := content.Optimize(base)
	fallbackPrompt := content.Optimize(joinNonEmpty(originalDescription, cleaned))
	image, usedPrompt, err := o.generateStage(ctx, r, finalPrompt, fallbackPrompt, o.negativePrompt, o.guidanceStandard)
	if err != nil {
		return &Outcome{Success: false, Stages: r.stages, Mode: ModeFallback, FinalPrompt: finalPrompt}, err
	}

	image, removed := o.removeBackgroundStage(ctx, r, image)
	return o.finish(r, image, usedPrompt, removed), nil
}

func describeImage(image []byte) string {
	return fmt.Sprintf("image: %d bytes", len(image))
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

func buildInterpretPrompt(image []byte, prompt string) string {
	var b strings.Builder
	b.WriteString("TASK: You are a visual content assistant helping an icon animation storyboard writer. When given an icon-style image, your task is to generate a short, clear, and animation-ready description of the visual content.\n\n")
	fmt.Fprintf(&b, "ORIGINAL_PROMPT: %s\n\n", prompt)
	fmt.Fprintf(&b, "IMAGE_DATA: %s\n\n", base64.StdEncoding.EncodeToString(image))
	b.WriteString(`INSTRUCTIONS:
- Focus only on elements relevant for animation, such as characters, objects, environments, positions, and actions
- Avoid stylistic details, colors (unless essential), or anything irrelevant to animation movement or staging
- Keep your response one sentence
- Be literal and descriptive, not interpretive
- Imagine you're passing visual instructions to another AI for animating the scene

RESPONSE_FORMAT: Provide a single sentence description of the visual content suitable for animation purposes.`)
	return b.String()
}

func buildEditPrompt(editRequest, originalImageURL, originalDescription string) string {
	var b strings.Builder
	b.WriteString("TASK: You are an icon editing assistant. Turn the requested change into concrete visual directives for regenerating the icon.\n\n")
	fmt.Fprintf(&b, "ORIGINAL_DESCRIPTION: %s\n", originalDescription)
	if originalImageURL != "" {
		fmt.Fprintf(&b, "ORIGINAL_IMAGE: %s\n", originalImageURL)
	}
	fmt.Fprintf(&b, "REQUESTED_CHANGE: %s\n\n", editRequest)
	b.WriteString("RESPONSE_FORMAT: Provide a single descriptive prompt for the updated icon, keeping everything from the original that the change does not touch.")
	return b.String()
}
