package solr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// URL templates
// --------------------------------------------------------------------------

// All URLs used by the client are built from these templates. {url} and {core}
// are replaced with the base URL and core name of the targeted role.
const (
	ReloadURL      = "{url}/admin/cores?action=RELOAD&core={core}"
	ReplicationURL = "{url}/{core}/replication"
	SearchURL      = "{url}/{core}/query"
	SynonymsURL    = "{url}/{core}/schema/analysis/synonyms"
	UpdateURL      = "{url}/{core}/update?commit=true&overwrite=true&wt=json"
	BulkUpdateURL  = "{url}/{core}/update?overwrite=true&wt=json"
)

// Defaults used when a value is not configured
const (
	DefaultRetryTotal         = 2
	DefaultRetryBackoffFactor = 5.0
	DefaultOffset             = 0
	DefaultLimit              = 10
	DefaultTimeoutSecond      = 25
)

// --------------------------------------------------------------------------
// Roles
// --------------------------------------------------------------------------

// Role selects the node a request is sent to
type Role uint8

const (
	Leader Role = iota
	Follower
)

// String returns the string representation of a Role.
func (r Role) String() string {
	switch r {
	case Leader:
		return "leader"
	case Follower:
		return "follower"
	default:
		return "unknown"
	}
}

// ParseRole converts "leader" or "follower" (case-insensitive) to a Role.
// An empty string yields the leader role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "leader":
		return Leader, nil
	case "follower":
		return Follower, nil
	default:
		return Leader, fmt.Errorf("invalid role %q (expected leader or follower)", s)
	}
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the deployment settings of the transport client.
// It is copied into the client on creation and never changed afterwards.
//
// For a single node deployment set LeaderURL and FollowerURL to the same value,
// for a single core deployment set LeaderCore and FollowerCore to the same value.
type ClientConfig struct {
	LeaderURL    string
	FollowerURL  string
	LeaderCore   string
	FollowerCore string

	// retry policy
	RetryTotal         int
	RetryBackoffFactor float64 // in seconds

	// pagination defaults for Query
	DefaultOffset int
	DefaultLimit  int

	// TimeoutSecond is the timeout of a single attempt for operations without an explicit timeout
	TimeoutSecond int

	// MaxRequestsPerSecond limits outgoing attempts, 0 disables the limit
	MaxRequestsPerSecond float64
}

// DefaultClientConfig returns a config with all tunables set to their defaults.
// URLs and cores still have to be set by the caller.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RetryTotal:         DefaultRetryTotal,
		RetryBackoffFactor: DefaultRetryBackoffFactor,
		DefaultOffset:      DefaultOffset,
		DefaultLimit:       DefaultLimit,
		TimeoutSecond:      DefaultTimeoutSecond,
	}
}

// Validate checks that the configuration is usable
func (c ClientConfig) Validate() error {
	if c.LeaderURL == "" || c.FollowerURL == "" {
		return fmt.Errorf("leader and follower url are required")
	}
	if c.LeaderCore == "" || c.FollowerCore == "" {
		return fmt.Errorf("leader and follower core are required")
	}
	if c.RetryTotal < 0 {
		return fmt.Errorf("retry total must not be negative (got %d)", c.RetryTotal)
	}
	if c.RetryBackoffFactor < 0 {
		return fmt.Errorf("retry backoff factor must not be negative (got %v)", c.RetryBackoffFactor)
	}
	if c.DefaultOffset < 0 {
		return fmt.Errorf("default offset must not be negative (got %d)", c.DefaultOffset)
	}
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be positive (got %d)", c.DefaultLimit)
	}
	if c.TimeoutSecond <= 0 {
		return fmt.Errorf("timeout must be positive (got %d)", c.TimeoutSecond)
	}
	if c.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max requests per second must not be negative (got %v)", c.MaxRequestsPerSecond)
	}
	return nil
}

// resolve returns the base url and core name for the given role
func (c ClientConfig) resolve(role Role) (baseURL, core string) {
	if role == Follower {
		return c.FollowerURL, c.FollowerCore
	}
	return c.LeaderURL, c.LeaderCore
}

// expand substitutes {url} and {core} in the template for the given role
func (c ClientConfig) expand(template string, role Role) string {
	baseURL, core := c.resolve(role)
	return strings.NewReplacer(
		"{url}", strings.TrimRight(baseURL, "/"),
		"{core}", core,
	).Replace(template)
}

// timeout returns the default per attempt timeout
func (c ClientConfig) timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Solr Leader")
	addField("URL", c.LeaderURL)
	addField("Core", c.LeaderCore)

	addSection("Solr Follower")
	addField("URL", c.FollowerURL)
	addField("Core", c.FollowerCore)

	addSection("Transport")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Total", strconv.Itoa(c.RetryTotal))
	addField("Retry Backoff Factor", strconv.FormatFloat(c.RetryBackoffFactor, 'f', -1, 64))
	if c.MaxRequestsPerSecond > 0 {
		addField("Max Requests", fmt.Sprintf("%v/sec", c.MaxRequestsPerSecond))
	} else {
		addField("Max Requests", "unlimited")
	}

	addSection("Pagination")
	addField("Default Offset", strconv.Itoa(c.DefaultOffset))
	addField("Default Limit", strconv.Itoa(c.DefaultLimit))

	return sb.String()
}
