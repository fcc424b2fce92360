package training

import (
	"context"
	"log/slog"
	"time"
)

// Submission kinds.
const (
	SubmissionDDL           = "ddl"
	SubmissionDocumentation = "documentation"
	SubmissionSQLExample    = "sql_example"
)

// Submission is one piece of confirmed training material. Exactly one
// content group is populated, selected by Kind: DDL, Documentation, or the
// Question/SQL pair.
type Submission struct {
	Kind          string    `json:"kind"`
	DDL           string    `json:"ddl,omitempty"`
	Documentation string    `json:"documentation,omitempty"`
	Question      string    `json:"question,omitempty"`
	SQL           string    `json:"sql,omitempty"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// content returns the submission's primary text.
func (s Submission) content() string {
	switch s.Kind {
	case SubmissionDDL:
		return s.DDL
	case SubmissionDocumentation:
		return s.Documentation
	case SubmissionSQLExample:
		return s.Question + " -> " + s.SQL
	}
	return ""
}

// Sink receives confirmed submissions. Submit returns a short
// acknowledgement surfaced to the caller.
type Sink interface {
	Submit(ctx context.Context, sub Submission) (string, error)
}

// slogSink records submissions via structured logging. It is the default
// sink when no external pipeline is configured.
type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a Sink that records submissions via the given
// logger. If logger is nil, slog.Default() is used.
func NewSlogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogSink{logger: logger}
}

// Submit logs the submission.
func (s *slogSink) Submit(ctx context.Context, sub Submission) (string, error) {
	s.logger.LogAttrs(ctx, slog.LevelInfo, "training submission recorded",
		slog.String("kind", sub.Kind),
		slog.Int("content_length", len(sub.content())),
		slog.Time("submitted_at", sub.SubmittedAt),
	)
	return sub.Kind + " submission recorded", nil
}

// Verify interface compliance.
var _ Sink = (*slogSink)(nil)
