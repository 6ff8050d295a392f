//go:build tools

// Package tools records build-time-only tool dependencies so `go mod tidy`
// doesn't prune them: stringer generates nodekind_string.go from mpt/node.go.
package tools

import (
	_ "golang.org/x/tools/cmd/stringer"
)
