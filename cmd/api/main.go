package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"uniicon/internal/http/handlers"
	httpapi "uniicon/internal/http/httpapi"
	"uniicon/internal/infra"
	"uniicon/internal/pipeline"
	"uniicon/internal/providers/agent"
	"uniicon/internal/providers/removebg"
	"uniicon/internal/providers/titan"
	"uniicon/internal/storage"
	"uniicon/internal/validate"
)

// titanSynthesizer adapts the titan client to the pipeline contract.
type titanSynthesizer struct {
	client *titan.Client
}

func (t titanSynthesizer) Generate(ctx context.Context, req pipeline.SynthesisRequest) ([]byte, error) {
	return t.client.Generate(ctx, titan.GenerateRequest{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		GuidanceScale:  req.GuidanceScale,
	})
}

// removalAdapter adapts the removebg client to the pipeline contract.
type removalAdapter struct {
	client *removebg.Client
}

func (r removalAdapter) TestConnection(ctx context.Context) bool {
	return r.client.TestConnection(ctx)
}

func (r removalAdapter) Remove(ctx context.Context, image []byte) (*pipeline.RemovalResult, error) {
	res, err := r.client.Remove(ctx, image, removebg.RemoveOptions{})
	if err != nil {
		return nil, err
	}
	return &pipeline.RemovalResult{Data: res.Data, Removed: res.Removed, Reason: res.Reason}, nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Shared agent session, built on first use.
	session := agent.NewSession(func() (*agent.Runtime, error) {
		return agent.NewRuntime(agent.Options{
			BaseURL:        cfg.AgentBaseURL,
			Region:         cfg.AgentRegion,
			APIKey:         cfg.AgentAPIKey,
			Logger:         &logger,
			RequestTimeout: cfg.AgentTimeout,
		})
	})

	extract := agent.NewCapability(agent.RoleExtract,
		agent.Ref{AgentID: cfg.ExtractAgentID, AliasID: cfg.ExtractAliasID}, session, &logger)
	interpret := agent.NewCapability(agent.RoleInterpret,
		agent.Ref{AgentID: cfg.InterpretAgentID, AliasID: cfg.InterpretAliasID}, session, &logger)
	planner := agent.NewCapability(agent.RolePlanner,
		agent.Ref{AgentID: cfg.PlannerAgentID, AliasID: cfg.PlannerAliasID}, session, &logger)
	validator := agent.NewCapability(agent.RoleValidator,
		agent.Ref{AgentID: cfg.ValidatorAgentID, AliasID: cfg.ValidatorAliasID}, session, &logger)

	titanClient, err := titan.NewClient(titan.Options{
		BaseURL:        cfg.ImageBaseURL,
		APIKey:         cfg.ImageAPIKey,
		ModelID:        cfg.ImageModelID,
		Logger:         &logger,
		RequestTimeout: cfg.ImageTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image client")
	}
	removeClient, err := removebg.NewClient(removebg.Options{
		APIKey:         cfg.RemoveBgKey,
		BaseURL:        cfg.RemoveBgURL,
		Logger:         &logger,
		RequestTimeout: cfg.RemoveBgTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build removal client")
	}

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Extract:             extract,
		Plan:                planner,
		Interpret:           interpret,
		Synthesizer:         titanSynthesizer{client: titanClient},
		Remover:             removalAdapter{client: removeClient},
		Logger:              &logger,
		NegativePrompt:      titan.DefaultNegativePrompt,
		EmojiNegativePrompt: titan.EmojiNegativePrompt,
		GuidanceStandard:    titan.GuidanceStandard,
		GuidanceExpressive:  titan.GuidanceExpressive,
	})

	store, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare icon storage")
	}

	app := handlers.NewApp(orchestrator, validate.New(validator, &logger), removeClient, store, &logger)
	app.Capabilities = map[string]bool{
		"extract":   extract.Configured(),
		"interpret": interpret.Configured(),
		"planner":   planner.Configured(),
		"validator": validator.Configured(),
	}
	app.ImageConfigured = titanClient.Configured()

	router := httpapi.NewRouter(app, logger, cfg.CORSAllowedOrigins, cfg.RateLimitPerMin)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
