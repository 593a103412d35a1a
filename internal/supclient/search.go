package supclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// searchAllPath is the tRPC query endpoint for user search. The sync loop
// never calls this; it exists for the control API only.
const searchAllPath = "/api/trpc/userData.searchAll"

// SearchUsers queries the Sup user directory. The query is wrapped in the
// URL-encoded JSON input parameter the tRPC query transport expects. The
// decoded response is returned as-is.
func (c *Client) SearchUsers(ctx context.Context, query string) (any, error) {
	input, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshal search input: %w", err)
	}
	path := searchAllPath + "?input=" + url.QueryEscape(string(input))
	return c.Request(ctx, path, nil)
}
