package main

import "fmt"

// Overridden at build time:
//
//	go build -ldflags "-X main.version=1.2.3 -X main.commit=$(git rev-parse --short HEAD) -X main.date=$(date -u +%Y-%m-%d)" ./cmd/safemode-monitoring
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// versionString is what --version prints.
func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
}
