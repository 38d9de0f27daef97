package server

import (
	"fmt"
	"io"
	"os"

	"interviewprep/internal/utils"
)

// displayOutput receives the startup banner
var displayOutput io.Writer = os.Stdout

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Fprintln(displayOutput, "Available endpoints:")
	fmt.Fprintln(displayOutput, "  GET  /health     - Health check (send X-Gemini-Key to check models)")
	fmt.Fprintln(displayOutput, "  GET  /stats      - Server statistics")
	fmt.Fprintln(displayOutput, "  GET  /roles      - Supported job roles")
	fmt.Fprintln(displayOutput, "  POST /extract    - Extract resume text (multipart)")
	fmt.Fprintln(displayOutput, "  POST /analyze    - Analyze resume against a job description")
	fmt.Fprintln(displayOutput, "  POST /questions  - Generate interview questions")
	fmt.Fprintln(displayOutput, "  POST /answers    - Generate model answers")
	fmt.Fprintln(displayOutput, "  POST /prep       - Questions and answers in one call")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if n := s.apiKeyCount(); n > 0 {
		fmt.Fprintf(displayOutput, "API authentication: ENABLED (%d keys configured)\n", n)
		fmt.Fprintln(displayOutput, "Include 'X-API-Key: <your-key>' header in POST requests")
	} else {
		fmt.Fprintln(displayOutput, "API authentication: DISABLED (no API keys configured)")
		fmt.Fprintln(displayOutput, "WARNING: API endpoints are publicly accessible!")
	}
	fmt.Fprintf(displayOutput, "Gemini credential: per request via '%s' header or apiKey field\n", CredentialHeader)
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Fprintf(displayOutput, "Request size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Fprintln(displayOutput, "Request size limit: DISABLED")
		fmt.Fprintln(displayOutput, "WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Fprintf(displayOutput, "Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Fprintln(displayOutput, "  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Fprintln(displayOutput, "  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Fprintln(displayOutput, "Rate limiting: DISABLED")
		fmt.Fprintln(displayOutput, "WARNING: No rate limiting configured!")
	}
}
