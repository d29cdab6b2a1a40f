package util

import (
	"strings"

	"github.com/ValentinKolb/dSolr/lib/solr"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (e.g. DSOLR_SOLR_LEADER_URL)
	EnvPrefix = "dsolr"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSolrClientFlags adds the solr transport flags to a command
func SetupSolrClientFlags(cmd *cobra.Command) {
	key := "solr-leader-url"
	cmd.PersistentFlags().String(key, "http://localhost:8983/solr", WrapString("Base URL of the solr leader node (indexing and administration)"))

	key = "solr-follower-url"
	cmd.PersistentFlags().String(key, "http://localhost:8983/solr", WrapString("Base URL of the solr follower node (queries). Use the leader URL for a single node deployment"))

	key = "solr-leader-core"
	cmd.PersistentFlags().String(key, "dsolr", WrapString("Name of the core on the leader node"))

	key = "solr-follower-core"
	cmd.PersistentFlags().String(key, "dsolr", WrapString("Name of the core on the follower node"))

	key = "solr-retry-total"
	cmd.PersistentFlags().Int(key, solr.DefaultRetryTotal, WrapString("How many times overload responses (413, 429, 502, 503, 504) and connection failures are retried"))

	key = "solr-retry-backoff-factor"
	cmd.PersistentFlags().Float64(key, solr.DefaultRetryBackoffFactor, WrapString("Backoff factor in seconds. The n-th retry waits factor * 2^(n-1) seconds, the first retry is immediate"))

	key = "solr-default-offset"
	cmd.PersistentFlags().Int(key, solr.DefaultOffset, WrapString("Offset used for queries without an explicit offset"))

	key = "solr-default-limit"
	cmd.PersistentFlags().Int(key, solr.DefaultLimit, WrapString("Limit used for queries without an explicit limit"))

	key = "solr-timeout"
	cmd.PersistentFlags().Int(key, solr.DefaultTimeoutSecond, WrapString("Timeout in seconds of a single solr request"))

	key = "solr-max-rps"
	cmd.PersistentFlags().Float64(key, 0, WrapString("Maximum number of requests per second sent to solr (0 = unlimited)"))
}

// InitConfig loads the env files and initializes viper
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the solr client configuration from viper
func GetClientConfig() solr.ClientConfig {
	return solr.ClientConfig{
		LeaderURL:            viper.GetString("solr-leader-url"),
		FollowerURL:          viper.GetString("solr-follower-url"),
		LeaderCore:           viper.GetString("solr-leader-core"),
		FollowerCore:         viper.GetString("solr-follower-core"),
		RetryTotal:           viper.GetInt("solr-retry-total"),
		RetryBackoffFactor:   viper.GetFloat64("solr-retry-backoff-factor"),
		DefaultOffset:        viper.GetInt("solr-default-offset"),
		DefaultLimit:         viper.GetInt("solr-default-limit"),
		TimeoutSecond:        viper.GetInt("solr-timeout"),
		MaxRequestsPerSecond: viper.GetFloat64("solr-max-rps"),
	}
}

// NewSolrClient creates a solr client from the viper configuration
func NewSolrClient() (*solr.Client, error) {
	return solr.NewClient(GetClientConfig())
}

// SplitList splits a comma-separated list and drops blank entries
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
