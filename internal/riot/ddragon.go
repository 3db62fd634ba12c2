package riot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Champions caches the Data Dragon champion table. The table only changes
// when the game patches, so it is refreshed on demand when an unknown
// champion id shows up.
type Champions struct {
	client *Client

	mu      sync.RWMutex
	version string
	names   map[int]string
}

// NewChampions creates an empty champion cache backed by the client.
func NewChampions(client *Client) *Champions {
	return &Champions{
		client: client,
		names:  make(map[int]string),
	}
}

type championFile struct {
	Data map[string]struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"data"`
}

// Refresh downloads the champion table of the latest patch.
func (c *Champions) Refresh(ctx context.Context) error {
	var versions []string
	if err := c.client.getStatic(ctx, c.client.ddragonURL+"/api/versions.json", &versions); err != nil {
		return fmt.Errorf("failed to get data dragon versions: %w", err)
	}
	if len(versions) == 0 {
		return errors.New("data dragon returned no versions")
	}
	latest := versions[0]

	var file championFile
	endpoint := fmt.Sprintf("%s/cdn/%s/data/en_US/champion.json", c.client.ddragonURL, latest)
	if err := c.client.getStatic(ctx, endpoint, &file); err != nil {
		return fmt.Errorf("failed to get champion data: %w", err)
	}

	names := make(map[int]string, len(file.Data))
	for _, champ := range file.Data {
		id, err := strconv.Atoi(champ.Key)
		if err != nil {
			continue
		}
		names[id] = champ.Name
	}

	c.mu.Lock()
	c.version = latest
	c.names = names
	c.mu.Unlock()
	return nil
}

// Name returns the champion name for an id.
func (c *Champions) Name(id int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[id]
	return name, ok
}

// Version returns the patch the table was loaded from.
func (c *Champions) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
