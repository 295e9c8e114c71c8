// Package core is the orchestration layer.  It assembles the node
// server, connection registry, resolvers and supervisors into complete
// operational modes and provides a builder that selects the right mode
// from a Config.
//
// Architecture layers (bottom → top):
//
//	transport  →  node + registry  →  supervisor  →  core  →  cmd (CLI)
package core

import "context"

// Mode represents a complete operational mode of peerkeep (run, once,
// or resolve).  Each mode owns its full lifecycle from startup to
// teardown.
type Mode interface {
	Run(ctx context.Context) error
}
