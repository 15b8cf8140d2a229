package tools

import (
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jakubkrzysztofsikora/adhd-budget/internal/upstream"
)

func handleEcho(arguments map[string]interface{}) (interface{}, error) {
	message, _ := arguments["message"].(string)
	if message == "" {
		message = "pong"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: message}},
	}, nil
}

// fetchTransactions resolves the caller's default account (or the requested
// one), fetches its transaction feed within [from, to], normalises it, and
// propagates any upstream token rotation back through cc.OnTokensRotated.
func fetchTransactions(accountID string, from, to *time.Time, cc CallContext) ([]NormalisedTransaction, string, error) {
	if accountID == "" {
		accounts, rotated, err := cc.UpstreamClient.ListAccounts(cc.Context, cc.AccessToken, cc.RefreshToken)
		if err != nil {
			return nil, "", translateUpstreamErr(err)
		}
		propagateRotation(rotated, cc)
		if len(accounts) == 0 {
			return nil, "", newUpstreamError(503, "no accounts available from upstream")
		}
		accountID = accounts[0].ID
	}

	txs, rotated, err := cc.UpstreamClient.ListTransactions(cc.Context, accountID, cc.AccessToken, cc.RefreshToken, from, to)
	if err != nil {
		return nil, "", translateUpstreamErr(err)
	}
	propagateRotation(rotated, cc)

	return normalizeAll(txs), accountID, nil
}

func propagateRotation(rotated *upstream.Tokens, cc CallContext) {
	if rotated != nil && cc.OnTokensRotated != nil {
		cc.OnTokensRotated(rotated)
	}
}

func translateUpstreamErr(err error) error {
	if cfgErr, ok := err.(*upstream.ConfigError); ok {
		return &HandlerError{Code: -32000, Status: 503, Message: "upstream not configured: " + cfgErr.Error()}
	}
	return newUpstreamError(503, "upstream call failed: "+err.Error())
}

func handleSearch(arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	query, _ := arguments["query"].(string)
	limit := 50
	if l, ok := arguments["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	if limit > 200 {
		limit = 200
	}

	if cc.Progress != nil {
		cc.Progress(map[string]interface{}{"event": "search", "status": "started", "query": query})
	}

	txs, _, err := fetchTransactions("", nil, nil, cc)
	if err != nil {
		return nil, err
	}

	lowerQuery := strings.ToLower(query)
	results := make([]NormalisedTransaction, 0, limit)
	for _, t := range txs {
		if query != "" &&
			!strings.Contains(strings.ToLower(t.Merchant), lowerQuery) &&
			!strings.Contains(strings.ToLower(t.Description), lowerQuery) {
			continue
		}
		results = append(results, t)
		if len(results) >= limit {
			break
		}
	}

	if cc.Progress != nil {
		cc.Progress(map[string]interface{}{"event": "search", "status": "completed", "count": len(results)})
	}

	return map[string]interface{}{"results": results, "query": query}, nil
}

func handleFetch(arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	id, _ := arguments["id"].(string)
	if id == "" {
		return nil, errBadParams("id is required")
	}

	txs, _, err := fetchTransactions("", nil, nil, cc)
	if err != nil {
		return nil, err
	}

	for _, t := range txs {
		if t.ID == id {
			return map[string]interface{}{"resource": t}, nil
		}
	}
	return nil, errNotFound(id)
}

func handleSummaryToday(arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	budget, _ := arguments["budget"].(float64)

	now := cc.Now
	if now.IsZero() {
		now = time.Now()
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	txs, _, err := fetchTransactions("", &startOfDay, nil, cc)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"summary": buildSummary(txs, now, budget)}, nil
}

func handleProjectionMonth(arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	budget, _ := arguments["budget"].(float64)
	startingBalance, haveStartingBalance := arguments["starting_balance"].(float64)

	now := cc.Now
	if now.IsZero() {
		now = time.Now()
	}
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	txs, _, err := fetchTransactions("", &startOfMonth, nil, cc)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{"projection": buildProjection(txs, now, budget, startingBalance, haveStartingBalance)}, nil
}

func handleTransactionsQuery(arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	accountID, _ := arguments["account_id"].(string)

	var since, until *time.Time
	if s, ok := arguments["since"].(string); ok && s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			since = &t
		} else {
			return nil, errBadParams("since must be a YYYY-MM-DD date")
		}
	}
	if u, ok := arguments["until"].(string); ok && u != "" {
		if t, err := time.Parse("2006-01-02", u); err == nil {
			until = &t
		} else {
			return nil, errBadParams("until must be a YYYY-MM-DD date")
		}
	}

	limit := 100
	if l, ok := arguments["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	if limit > 500 {
		limit = 500
	}

	if cc.Progress != nil {
		cc.Progress(map[string]interface{}{"event": "progress", "status": "started", "tool": "transactions.query"})
	}

	txs, resolvedAccountID, err := fetchTransactions(accountID, since, until, cc)
	if err != nil {
		return nil, err
	}

	sort.Slice(txs, func(i, j int) bool { return txs[i].Date > txs[j].Date })
	if len(txs) > limit {
		txs = txs[:limit]
	}

	if cc.Progress != nil {
		cc.Progress(map[string]interface{}{"event": "progress", "status": "completed", "tool": "transactions.query", "count": len(txs)})
	}

	result := map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
		"limit":        limit,
		"account_id":   resolvedAccountID,
	}
	if since != nil {
		result["since"] = since.Format("2006-01-02")
	}
	if until != nil {
		result["until"] = until.Format("2006-01-02")
	}
	return result, nil
}
