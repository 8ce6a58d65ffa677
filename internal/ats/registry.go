// Package ats holds deterministic parsers for applicant-tracking systems
// with recognizable URL shapes. A matching parser bypasses the extraction
// oracle entirely.
package ats

import (
	"context"

	"jobharvest-engine/internal/domain"
)

// Parsed is a deterministic parser's output for one job URL.
type Parsed struct {
	Fields    domain.JobFields
	Canonical string
	PageHTML  string
}

type Parser interface {
	Name() string
	// Match reports whether the URL has this ATS's job-posting shape.
	// It must not perform I/O.
	Match(jobURL string) bool
	Parse(ctx context.Context, jobURL string) (*Parsed, error)
}

// Registry probes parsers in registration order and returns the first
// match, or nil when the generic tier should handle the URL.
type Registry struct {
	parsers []Parser
}

func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

func (r *Registry) Find(jobURL string) Parser {
	for _, p := range r.parsers {
		if p.Match(jobURL) {
			return p
		}
	}
	return nil
}
