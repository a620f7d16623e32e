package source

import (
	"tieba-chat/internal/config/schema"
)

// CLIOverrides holds values given on the command line
// Zero values mean "flag not set" and leave lower-priority values untouched.
type CLIOverrides struct {
	NodeName  string
	Port      int
	RPCListen string
	Peers     []schema.PeerConfig
	LogLevel  string
}

// CLISource applies command line flags on top of every other source
type CLISource struct {
	overrides CLIOverrides
}

// NewCLISource creates a new CLISource
func NewCLISource(overrides CLIOverrides) *CLISource {
	return &CLISource{overrides: overrides}
}

// Name returns the source name
func (s *CLISource) Name() string {
	return "cli"
}

// Priority returns the source priority
func (s *CLISource) Priority() int {
	return PriorityCLI
}

// LoadInto applies the non-zero overrides
func (s *CLISource) LoadInto(cfg *schema.Root) error {
	o := s.overrides
	if o.NodeName != "" {
		cfg.Node.Name = o.NodeName
	}
	if o.Port != 0 {
		cfg.Node.Port = o.Port
	}
	if o.RPCListen != "" {
		cfg.RPC.Listen = o.RPCListen
	}
	if len(o.Peers) > 0 {
		cfg.Peers = append([]schema.PeerConfig(nil), o.Peers...)
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	return nil
}
