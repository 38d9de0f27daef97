package cli

import (
	"context"
	"time"

	"interviewprep/internal/server"

	"github.com/spf13/cobra"
)

// uploadOverhead leaves room for the multipart framing and form fields
// around the largest accepted resume
const uploadOverhead = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server that provides REST API endpoints for resume analysis
and interview preparation.

Available endpoints:
- POST /extract: Extract the text of an uploaded resume
- POST /analyze: Score a resume against a job description
- POST /questions: Generate interview questions for a job role
- POST /answers: Write model answers to interview questions
- POST /prep: Top questions with model answers
- GET /roles: Supported job roles
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

Every model-backed request carries its own Gemini key in the X-Gemini-Key
header or the apiKey field.`,
	RunE: runServe,
}

var (
	servePort string
	serveHost string
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveHost
	}

	app, err := buildApplication(cfg, logger, true)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.shutdown(ctx, logger)
	}()

	providers := make([]server.ModelProvider, len(app.providers))
	for i, p := range app.providers {
		providers[i] = p
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize + uploadOverhead,
		RateLimit:      &cfg.Server.RateLimit,
	}
	if vault := getVaultFromContext(cmd.Context()); vault != nil {
		serverCfg.Vault = vault
	}

	srv := server.NewServer(cfg, serverCfg, server.Services{
		Assistant: app.assistant,
		Providers: providers,
	}, app.om, logger)
	return srv.Start(cmd.Context())
}
