package cms

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Status is the periodic player heartbeat.
type Status struct {
	PlayerID  string    `json:"player_id"`
	Name      string    `json:"name,omitempty"`
	State     string    `json:"state"`
	Index     int       `json:"index"`
	ItemID    string    `json:"item_id,omitempty"`
	ItemCount int       `json:"item_count"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PostStatus reports the player status for monitoring.
func (c *Client) PostStatus(ctx context.Context, status Status) error {
	if status.PlayerID == "" {
		status.PlayerID = c.playerID
	}
	if err := c.postJSON(ctx, c.paths.Status, status); err != nil {
		return errors.Wrap(err, "failed to post status")
	}
	return nil
}
