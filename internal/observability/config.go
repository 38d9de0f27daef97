package observability

import (
	"interviewprep/internal/config"
)

// GetObservabilityConfig maps the loaded configuration onto the manager's
// settings. version is used when no service version is configured.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "interviewprep",
			ServiceVersion: version,
			Enabled:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
			Prometheus:     GetPrometheusConfig(cfg),
		}
	}

	obsConfig := cfg.Observability

	serviceVersion := obsConfig.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}

	return ObservabilityConfig{
		ServiceName:    obsConfig.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        obsConfig.Enabled,
		ConsoleOutput:  obsConfig.Console.Enabled,
		PrettyPrint:    obsConfig.Console.PrettyPrint,
		SampleRate:     obsConfig.Tracing.SampleRate,
		Prometheus:     GetPrometheusConfig(cfg),
	}
}

// ForCLI keeps tracing and metrics in process for one-shot commands. A
// short-lived command must not bind the Prometheus port.
func ForCLI(obs ObservabilityConfig) ObservabilityConfig {
	obs.Prometheus.Enabled = false
	return obs
}
