package gatecli

import "time"

// Config holds configuration for one gate invocation.
type Config struct {
	CapturePath  string        // capture file certified locally
	ArtifactPath string        // where the JSON artifact is written; empty skips it
	BaseURL      string        // when set, the gate runs on a live service instead
	Workers      int           // parallel cases
	Seed         uint64        // stress slice seed
	Timeout      time.Duration // HTTP request timeout for remote runs
	LogFile      string        // optional log file next to stderr
	LogFormat    string        // text or json
	Verbose      bool          // debug logging
}

// Remote reports whether the gate runs on a live service.
func (c *Config) Remote() bool {
	return c.BaseURL != ""
}
