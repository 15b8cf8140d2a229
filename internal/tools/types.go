// Package tools implements the gateway's financial tool catalogue:
// transaction normalisation, categorisation, summary and projection
// arithmetic, and the handlers invoked by the JSON-RPC tools/call method.
package tools

import (
	"context"
	"time"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/upstream"
)

// Definition describes one entry in the tools/list catalogue.
type Definition struct {
	Name        string
	Description string
	InputSchema InputSchema
	Protected   bool
}

// InputSchema is a minimal JSON Schema object, matching what the MCP wire
// format expects for a tool's inputSchema field.
type InputSchema struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Required   []string               `json:"required,omitempty"`
}

// NormalisedTransaction is the gateway's canonical transaction shape,
// derived from an upstream Transaction and never persisted.
type NormalisedTransaction struct {
	ID          string                 `json:"id"`
	Date        string                 `json:"date"`
	ValueDate   string                 `json:"valueDate,omitempty"`
	Amount      float64                `json:"amount"`
	Currency    string                 `json:"currency"`
	Merchant    string                 `json:"merchant"`
	Description string                 `json:"description,omitempty"`
	Reference   string                 `json:"reference,omitempty"`
	Category    string               `json:"category"`
	Raw         upstream.Transaction `json:"raw"`
}

// CallContext carries everything a tool handler needs beyond its arguments:
// the caller's upstream credentials (already refreshed if necessary) and a
// progress sink tied to the caller's MCP session.
type CallContext struct {
	Context        context.Context
	UpstreamClient upstream.Client
	AccessToken    string
	RefreshToken   string
	Progress       func(payload interface{})
	Now            time.Time

	// OnTokensRotated, if set, is called whenever an upstream call rotates
	// the access/refresh pair via its own 401-retry, so the caller can
	// persist the new pair back into the token store.
	OnTokensRotated func(tokens *upstream.Tokens)
}
