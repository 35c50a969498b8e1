package session

import (
	"github.com/osa030/19screen/internal/app/notification"
	"github.com/osa030/19screen/internal/app/playback"
	"github.com/osa030/19screen/internal/app/transition"
	"github.com/osa030/19screen/internal/domain/content"
	"github.com/osa030/19screen/internal/domain/display"
)

// ItemPayload is a content item as sent to the kiosk page.
type ItemPayload struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Source     string `json:"source"`
	DurationMs int64  `json:"duration_ms"`
}

func newItemPayload(it content.Item) ItemPayload {
	return ItemPayload{
		ID:         it.ID,
		Type:       string(it.Type),
		Name:       it.Name,
		Source:     it.Source,
		DurationMs: it.Duration.Milliseconds(),
	}
}

// ShowPayload tells the page to display an item.
// The page echoes Seq in media_ended and media_error.
type ShowPayload struct {
	Seq   uint64      `json:"seq"`
	Index int         `json:"index"`
	Count int         `json:"count"`
	Cause string      `json:"cause"`
	Item  ItemPayload `json:"item"`
}

// TransitionPayload tells the page to hide the outgoing item.
type TransitionPayload struct {
	From       ItemPayload       `json:"from"`
	To         ItemPayload       `json:"to"`
	Effect     string            `json:"effect"`
	DurationMs int64             `json:"duration_ms"`
	Style      transition.Visual `json:"style"`
	Cause      string            `json:"cause"`
}

// EmptyPayload tells the page there is nothing to show.
type EmptyPayload struct {
	Message string `json:"message"`
}

// DisplayPayload carries the display configuration.
type DisplayPayload struct {
	display.Config
	Rotated bool              `json:"rotated"`
	Style   transition.Visual `json:"style"`
}

// WidgetRemovePayload tells the page to drop a widget.
type WidgetRemovePayload struct {
	ID string `json:"id"`
}

// PageMessage is a message sent by the kiosk page.
type PageMessage struct {
	Type   notification.Type `json:"type"`
	Seq    uint64            `json:"seq,omitempty"`
	Reason string            `json:"reason,omitempty"`
	Key    string            `json:"key,omitempty"`
}

func newShowMessage(ev playback.Event) *notification.Message {
	return &notification.Message{
		Type: notification.TypeShow,
		Payload: ShowPayload{
			Seq:   ev.Snapshot.ShowSeq,
			Index: ev.Snapshot.CurrentIndex,
			Count: len(ev.Snapshot.Items),
			Cause: string(ev.Cause),
			Item:  newItemPayload(ev.Item),
		},
	}
}

func newTransitionMessage(ev playback.Event) *notification.Message {
	return &notification.Message{
		Type: notification.TypeTransition,
		Payload: TransitionPayload{
			From:       newItemPayload(ev.Item),
			To:         newItemPayload(ev.Next),
			Effect:     string(ev.Transition.Effect),
			DurationMs: ev.Transition.Hold.Milliseconds(),
			Style:      transition.Style(ev.Transition.Effect),
			Cause:      string(ev.Cause),
		},
	}
}

func newDisplayMessage(cfg display.Config) *notification.Message {
	return &notification.Message{
		Type:    notification.TypeDisplay,
		Payload: DisplayPayload{
			Config:  cfg,
			Rotated: cfg.IsRotated(),
			Style:   transition.Style(transition.New(cfg).Effect),
		},
	}
}
