// Package sources defines the finding-source contract and the built-in
// catalog of analysis perspectives scheduled by the orchestrator.
package sources

import (
	"context"

	"github.com/DrSkyle/assetpulse/pkg/model"
	"github.com/DrSkyle/assetpulse/pkg/profile"
)

// Request is the read-only input every source receives.
type Request struct {
	SystemType string
	SystemName string
	Profile    profile.DataProfile
	Context    map[string]string
}

// Source is one independent producer of findings.
type Source interface {
	Name() string
	Perspective() string
	// Analyze may block; it must honour ctx cancellation.
	Analyze(ctx context.Context, req Request) ([]model.Finding, error)
}

// Fallbacker is implemented by sources that can produce deterministic
// findings from the profile alone when Analyze fails or times out.
type Fallbacker interface {
	Fallback(req Request) []model.Finding
}
