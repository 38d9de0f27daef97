package cli

import (
	"context"
	"fmt"

	"interviewprep/internal/ai"
	"interviewprep/internal/assistant"
	"interviewprep/internal/config"
	"interviewprep/internal/errors"
	"interviewprep/internal/extract"
	"interviewprep/internal/observability"
	"interviewprep/internal/types"
)

// application bundles the services one command invocation needs
type application struct {
	assistant *assistant.Service
	providers []*ai.GeminiProvider
	om        *observability.ObservabilityManager
}

// buildApplication wires extraction, the coach and observability from cfg.
// forServer keeps the Prometheus endpoint enabled.
func buildApplication(cfg *config.Config, logger *errors.Logger, forServer bool) (*application, error) {
	obsConfig := observability.GetObservabilityConfig(cfg, Version)
	if !forServer {
		obsConfig = observability.ForCLI(obsConfig)
	}
	om, err := observability.NewObservabilityManager(obsConfig, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	metrics := om.Metrics()

	factory := ai.NewGeminiClientFactory(nil)
	coach := ai.NewCoach(cfg, factory, logger, ai.WithObserver(metrics))
	providers := coach.Providers()

	var pdf extract.PDFReader
	switch cfg.Extract.PDFBackend {
	case config.PDFBackendLocal:
		pdf = extract.NewLocalPDFReader()
	default:
		reader := ai.NewGeminiPDFReader(cfg, factory, logger, ai.WithObserver(metrics))
		providers = append(providers, reader.Provider())
		pdf = reader
	}

	extractor := extract.New(pdf, logger,
		extract.WithMaxFileSize(cfg.App.MaxFileSize),
		extract.WithObserver(metrics))

	logger.Debug("Application wired",
		"pdf_backend", cfg.Extract.PDFBackend,
		"providers", len(providers),
		"observability", obsConfig.Enabled)

	return &application{
		assistant: assistant.New(extractor, coach, metrics, logger),
		providers: providers,
		om:        om,
	}, nil
}

func (a *application) shutdown(ctx context.Context, logger *errors.Logger) {
	if err := a.om.Shutdown(ctx); err != nil {
		logger.LogError(err, "Failed to shut down observability")
	}
}

// cliCredential prefers the flag over the configured key
func cliCredential(cfg *config.Config) string {
	if geminiKey != "" {
		return geminiKey
	}
	return cfg.AI.APIKey
}

// resumeText extracts the resume, turning a failed extraction into an error
func resumeText(ctx context.Context, svc *assistant.Service, file *types.UploadedFile, credential string) (string, error) {
	result := svc.Extract(ctx, file, credential)
	if !result.OK {
		return "", errors.NewExtractionError(errors.ErrCodeDocumentParse, result.Message, nil).
			WithContext("file", file.Name)
	}
	return result.Text, nil
}
