// Package policy decides whether resource requests are trusted or checked
// against host capacity, and which process types may be created. A nil
// *Policy keeps the default "trust" behaviour.

package policy

import (
	"context"
	"strings"
)

// Admission modes recognised by the engine.
const (
	ModeTrust   = "trust"   // admit every request (default)
	ModeEnforce = "enforce" // reject requests exceeding host capacity
)

// Policy represents the admission settings of an engine or a single call.
//
//   - Mode controls capacity enforcement (trust / enforce).
//   - AllowList, BlockList filter process types regardless of Mode.
type Policy struct {
	Mode      string   // trust / enforce (default = trust)
	AllowList []string // whitelist of process types (empty => all)
	BlockList []string // blacklist of process types
}

// Config represents the declarative, serialisable form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty" mapstructure:"mode"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty" mapstructure:"allow"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty" mapstructure:"block"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      strings.ToLower(c.Mode),
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// Validate returns false for unknown modes.
func (c *Config) Validate() bool {
	if c == nil {
		return true
	}
	switch strings.ToLower(c.Mode) {
	case "", ModeTrust, ModeEnforce:
		return true
	}
	return false
}

// Enforce reports whether capacity must be checked.
func (p *Policy) Enforce() bool {
	return p != nil && strings.EqualFold(p.Mode, ModeEnforce)
}

// IsAllowed evaluates AllowList / BlockList. Both lists match process types by
// case-insensitive comparison.
func (p *Policy) IsAllowed(processType string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(processType)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// ---------------------------------------------------------------------------
// Context helpers
// ---------------------------------------------------------------------------

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx; it overrides the engine policy for calls
// made with that context.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy embedded in ctx.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}

// Resolve returns the context policy when present, otherwise fallback.
func Resolve(ctx context.Context, fallback *Policy) *Policy {
	if p := FromContext(ctx); p != nil {
		return p
	}
	return fallback
}
