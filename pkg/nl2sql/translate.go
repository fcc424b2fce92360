package nl2sql

import (
	"context"
	"fmt"

	"github.com/txn2/mcp-postgis/pkg/confirm"
)

// SessionRegistrar records a generated statement as a pending action
// awaiting explicit confirmation. *confirm.Manager implements it.
type SessionRegistrar interface {
	Create(ctx context.Context, kind string, payload any) (string, error)
}

// TranslatorConfig tunes a Translator. Zero values take the package
// defaults.
type TranslatorConfig struct {
	GeometryColumn string
	DefaultSchema  string
	DefaultLimit   int
}

// Translation is the preview handed back to the caller: the rendered
// statement plus the session id that must be confirmed before anything
// executes.
type Translation struct {
	SessionID string
	Statement GeneratedStatement
}

// Translator composes classification, extraction, and rendering, then
// registers each result with the session registrar. It never executes SQL
// itself; execution happens only after the session is confirmed, behind
// the safety guard at the execution boundary.
type Translator struct {
	engine        *Engine
	sessions      SessionRegistrar
	defaultSchema string
	defaultLimit  int
}

// NewTranslator builds a Translator registering its statements with
// sessions.
func NewTranslator(sessions SessionRegistrar, cfg TranslatorConfig) (*Translator, error) {
	engine, err := NewEngine(cfg.GeometryColumn)
	if err != nil {
		return nil, err
	}
	schema := cfg.DefaultSchema
	if schema == "" {
		schema = DefaultSchema
	}
	if !ValidIdentifier(schema) {
		return nil, &InvalidIdentifierError{Kind: "schema", Name: schema}
	}
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Translator{
		engine:        engine,
		sessions:      sessions,
		defaultSchema: schema,
		defaultLimit:  limit,
	}, nil
}

// Translate classifies text, extracts parameters, renders the statement,
// and registers it as a pending sql_execution session. defaultTable and
// schema are fallbacks for queries that do not name their own.
func (t *Translator) Translate(ctx context.Context, text, defaultTable, schema string) (*Translation, error) {
	intent := Classify(text)
	if intent == IntentUnrecognized {
		return nil, ErrUnrecognizedIntent
	}

	if schema == "" {
		schema = t.defaultSchema
	}
	params, err := Extract(text, intent, ExtractOptions{
		DefaultTable: defaultTable,
		Schema:       schema,
		Limit:        t.defaultLimit,
	})
	if err != nil {
		return nil, err
	}

	stmt, err := t.engine.Render(intent, params, text)
	if err != nil {
		return nil, err
	}

	sessionID, err := t.sessions.Create(ctx, confirm.KindSQLExecution, stmt)
	if err != nil {
		return nil, fmt.Errorf("registering confirmation session: %w", err)
	}
	return &Translation{SessionID: sessionID, Statement: stmt}, nil
}
