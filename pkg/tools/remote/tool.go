package remote

import (
	"context"
	"encoding/json"

	"github.com/redpen-ai/redpen/pkg/agent/tools"
)

// Definition describes one tool served by a remote endpoint.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Tool exposes a remote tool through the local tool interface. The
// arguments pass through untouched; validation belongs to the endpoint.
type Tool struct {
	client *Client
	def    Definition
}

// New binds a definition to a protocol client.
func New(client *Client, def Definition) *Tool {
	return &Tool{client: client, def: def}
}

func (t *Tool) Name() string {
	return t.def.Name
}

func (t *Tool) Description() string {
	return t.def.Description
}

func (t *Tool) Schema() map[string]interface{} {
	return t.def.Parameters
}

func (t *Tool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	return t.client.Call(ctx, t.def.Name, args)
}

// SearchDefinition is the web search tool served by the remote endpoint.
func SearchDefinition() Definition {
	return Definition{
		Name: "web_search",
		Description: "Search the web for up-to-date information on a topic. " +
			"Useful for trends, facts, and recent events to ground the note in.",
		Parameters: tools.ObjectSchema(map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum results to return (default 5)",
			},
		}, []string{"query"}),
	}
}
