package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// API server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the HTTP API.
// The solr transport settings are kept in solr.ClientConfig.
type ServerConfig struct {
	// HTTP api settings
	Endpoint string

	// Version is reported in the API response header
	Version string

	// APIKeys that are accepted in the x-apikey header, empty disables authentication
	APIKeys []string

	// ShutdownTimeoutSecond is the time in-flight requests get to finish on shutdown
	ShutdownTimeoutSecond int

	// Logging configuration
	LogLevel string
}

// AuthEnabled reports whether requests must carry an api key
func (c *ServerConfig) AuthEnabled() bool {
	return len(c.APIKeys) > 0
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// HTTP settings
	addSection("HTTP API")
	addField("Endpoint", c.Endpoint)
	addField("Version", c.Version)
	addField("Shutdown Timeout", fmt.Sprintf("%d sec", c.ShutdownTimeoutSecond))

	// Authentication, never print the keys themselves
	addSection("Authentication")
	if c.AuthEnabled() {
		addField("API Keys", strconv.Itoa(len(c.APIKeys))+" configured")
	} else {
		addField("API Keys", "disabled")
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
