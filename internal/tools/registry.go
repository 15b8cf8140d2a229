package tools

// Registry is the gateway's fixed tool catalogue and dispatcher. It holds no
// per-call state; everything a handler needs arrives through CallContext.
type Registry struct {
	defs []Definition
}

// NewRegistry builds the catalogue described in spec §4.7.
func NewRegistry() *Registry {
	return &Registry{
		defs: []Definition{
			{
				Name:        "echo",
				Description: "Echoes a message back, for connectivity testing.",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"message": map[string]interface{}{"type": "string"}},
				},
				Protected: false,
			},
			{
				Name:        "search",
				Description: "Searches normalised transactions by merchant or description.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"query": map[string]interface{}{"type": "string"},
						"limit": map[string]interface{}{"type": "integer", "maximum": 200},
					},
				},
				Protected: true,
			},
			{
				Name:        "fetch",
				Description: "Fetches a single normalised transaction by id.",
				InputSchema: InputSchema{
					Type:       "object",
					Properties: map[string]interface{}{"id": map[string]interface{}{"type": "string"}},
					Required:   []string{"id"},
				},
				Protected: true,
			},
			{
				Name:        "summary.today",
				Description: "Summarises today's spend by category against an optional daily budget.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"currency": map[string]interface{}{"type": "string"},
						"budget":   map[string]interface{}{"type": "number"},
					},
				},
				Protected: true,
			},
			{
				Name:        "projection.month",
				Description: "Projects month-end spend from spend-to-date against an optional budget.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"budget":           map[string]interface{}{"type": "number"},
						"starting_balance": map[string]interface{}{"type": "number"},
					},
				},
				Protected: true,
			},
			{
				Name:        "transactions.query",
				Description: "Lists booked transactions for an account within an optional date range.",
				InputSchema: InputSchema{
					Type: "object",
					Properties: map[string]interface{}{
						"account_id": map[string]interface{}{"type": "string"},
						"since":      map[string]interface{}{"type": "string", "format": "date"},
						"until":      map[string]interface{}{"type": "string", "format": "date"},
						"limit":      map[string]interface{}{"type": "integer", "maximum": 500},
					},
				},
				Protected: true,
			},
		},
	}
}

// List returns the full tool catalogue, in catalogue order.
func (r *Registry) List() []Definition {
	return r.defs
}

// Lookup returns the definition for name, or false if unknown.
func (r *Registry) Lookup(name string) (Definition, bool) {
	for _, d := range r.defs {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Call dispatches a tools/call invocation to its handler.
func (r *Registry) Call(name string, arguments map[string]interface{}, cc CallContext) (interface{}, error) {
	switch name {
	case "echo":
		return handleEcho(arguments)
	case "search":
		return handleSearch(arguments, cc)
	case "fetch":
		return handleFetch(arguments, cc)
	case "summary.today":
		return handleSummaryToday(arguments, cc)
	case "projection.month":
		return handleProjectionMonth(arguments, cc)
	case "transactions.query":
		return handleTransactionsQuery(arguments, cc)
	default:
		return nil, errUnknownTool(name)
	}
}
