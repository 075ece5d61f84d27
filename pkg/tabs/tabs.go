// Package tabs opens and closes browser tabs through the bridge.
package tabs

import (
	"context"
	"fmt"

	"github.com/dtnitsch/corpus-collector/models"
	"github.com/dtnitsch/corpus-collector/pkg/messaging"
)

const (
	TypeOpenTab  = "openTab"
	TypeCloseTab = "closeTab"
)

// OpenTabRequest loads url in a new tab sized to the given viewport.
// A zero width or height leaves the browser's default.
type OpenTabRequest struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// CloseTabRequest closes a tab opened by OpenTabRequest.
type CloseTabRequest struct {
	Type  string `json:"type"`
	TabID int    `json:"tabId"`
}

type openTabReply struct {
	TabID int `json:"tabId"`
}

// Client opens tabs over a messaging channel.
type Client struct {
	requester messaging.Requester
}

// NewClient returns a Client sending through r.
func NewClient(r messaging.Requester) *Client {
	return &Client{requester: r}
}

// Open loads url in a new tab and returns it once the bridge has created it.
func (c *Client) Open(ctx context.Context, url string, viewport models.ViewportSize) (models.Tab, error) {
	var reply openTabReply
	req := OpenTabRequest{Type: TypeOpenTab, URL: url, Width: viewport.Width, Height: viewport.Height}
	if err := c.requester.Request(ctx, req, &reply); err != nil {
		return models.Tab{}, fmt.Errorf("failed to open tab for %s: %w", url, err)
	}
	return models.Tab{ID: reply.TabID, URL: url}, nil
}

// Close closes tab.
func (c *Client) Close(ctx context.Context, tab models.Tab) error {
	if err := c.requester.Request(ctx, CloseTabRequest{Type: TypeCloseTab, TabID: tab.ID}, nil); err != nil {
		return fmt.Errorf("failed to close tab %d: %w", tab.ID, err)
	}
	return nil
}
