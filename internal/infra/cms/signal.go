package cms

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/19screen/internal/domain/signal"
)

// signalResponse accepts both the dedicated signal shape and the
// key/value system config shape.
type signalResponse struct {
	RefreshToken    flexString     `json:"refreshToken"`
	Command         string         `json:"command"`
	CommandIssuedAt flexString     `json:"commandIssuedAt"`
	Config          map[string]any `json:"config"`
}

// System config keys carrying the remote signal.
const (
	keyRefreshToken = "player_refresh_token"
	keyCommand      = "player_command"
	keyCommandTime  = "player_command_time"
)

// FetchSignal retrieves the current remote signal.
func (c *Client) FetchSignal(ctx context.Context) (signal.Remote, error) {
	var resp signalResponse
	if err := c.getJSON(ctx, c.paths.Signal, &resp); err != nil {
		return signal.Remote{}, errors.Wrap(err, "failed to fetch signal")
	}

	if resp.Config != nil {
		return signal.Remote{
			RefreshToken: text(resp.Config[keyRefreshToken]),
			Command: signal.Command{
				Kind:     signal.ParseCommandKind(text(resp.Config[keyCommand])),
				IssuedAt: text(resp.Config[keyCommandTime]),
			},
		}, nil
	}

	return signal.Remote{
		RefreshToken: string(resp.RefreshToken),
		Command: signal.Command{
			Kind:     signal.ParseCommandKind(resp.Command),
			IssuedAt: string(resp.CommandIssuedAt),
		},
	}, nil
}
