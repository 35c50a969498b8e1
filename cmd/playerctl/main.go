// Package main provides a CLI for controlling a running player.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/osa030/19screen/internal/api/shell"
)

var (
	app   = kingpin.New("19screen-playerctl", "19screen player control client")
	addr  = app.Flag("addr", "Player shell address").Default("http://localhost:8090").Envar("PLAYER_ADDR").String()
	token = app.Flag("token", "Control token").Envar("SHELL_TOKEN").String()

	stateCmd      = app.Command("state", "Show the player state")
	nextCmd       = app.Command("next", "Show the next item")
	prevCmd       = app.Command("prev", "Show the previous item")
	refreshCmd    = app.Command("refresh", "Poll the CMS immediately")
	fullscreenCmd = app.Command("fullscreen", "Toggle fullscreen")
	watchCmd      = app.Command("watch", "Print page messages as they are broadcast")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &client{base: strings.TrimRight(*addr, "/"), token: *token, http: &http.Client{Timeout: 10 * time.Second}}
	ctx := context.Background()

	var err error
	switch command {
	case stateCmd.FullCommand():
		err = c.state(ctx, os.Stdout)
	case nextCmd.FullCommand(), prevCmd.FullCommand(), refreshCmd.FullCommand(), fullscreenCmd.FullCommand():
		var resp shell.ControlResponse
		resp, err = c.control(ctx, command)
		if err == nil {
			fmt.Printf("OK: %s\n", resp.Message)
		}
	case watchCmd.FullCommand():
		err = watch(c.base, c.token)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	base  string
	token string
	http  *http.Client
}

// state prints the player status as indented JSON.
func (c *client) state(ctx context.Context, out io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/state", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status %d", resp.StatusCode)
	}

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return errors.Wrap(err, "failed to decode state")
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

// control posts a control action.
func (c *client) control(ctx context.Context, action string) (shell.ControlResponse, error) {
	var result shell.ControlResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/control/"+url.PathEscape(action), nil)
	if err != nil {
		return result, errors.Wrap(err, "failed to build request")
	}
	if c.token != "" {
		req.Header.Set(shell.PlayerTokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return result, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, errors.Wrapf(err, "failed to decode response (status %d)", resp.StatusCode)
	}
	if !result.Success {
		return result, errors.Newf("%s (status %d)", result.Message, resp.StatusCode)
	}
	return result, nil
}

// wsURL converts the shell base address to its WebSocket endpoint.
func wsURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrap(err, "invalid address")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	if token != "" {
		u.RawQuery = url.Values{shell.TokenQueryParam: {token}}.Encode()
	}
	return u.String(), nil
}

func watch(base, token string) error {
	target, err := wsURL(base, token)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to %s", target)
	}
	defer conn.Close()

	fmt.Println("Watching player messages. Press Ctrl+C to exit.")

	// Handle shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nDisconnecting...")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		var msg struct {
			Type    string          `json:"type"`
			Seq     uint64          `json:"seq"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "connection closed")
		}
		fmt.Printf("[%d] %-13s %s\n", msg.Seq, msg.Type, string(msg.Payload))
	}
}
