// Package transition decides how the hand-off between two items is presented.
package transition

import (
	"fmt"
	"time"

	"github.com/osa030/19screen/internal/domain/display"
)

// Plan describes one hand-off between the outgoing and incoming item.
type Plan struct {
	Effect display.Effect
	Hold   time.Duration // Time the hidden state is held before the index changes
}

// New returns the plan for the given display configuration.
// The none effect and a zero duration both swap immediately.
func New(cfg display.Config) Plan {
	effect := cfg.Effect
	if !effect.Valid() {
		effect = display.EffectFade
	}
	if effect == display.EffectNone || cfg.TransitionDuration <= 0 {
		return Plan{Effect: display.EffectNone}
	}
	return Plan{Effect: effect, Hold: cfg.TransitionDuration}
}

// Immediate returns true if the index changes without a visual gate.
func (p Plan) Immediate() bool {
	return p.Effect == display.EffectNone || p.Hold <= 0
}

// String returns the string representation of the plan.
func (p Plan) String() string {
	if p.Immediate() {
		return "none"
	}
	return fmt.Sprintf("%s/%dms", p.Effect, p.Hold.Milliseconds())
}

// Visual is the page-side treatment of the hidden state.
type Visual struct {
	Property string `json:"property"` // CSS property animated while hidden, empty for a plain hold
	Hidden   string `json:"hidden"`   // Value of Property while hidden
	Shown    string `json:"shown"`    // Value of Property once revealed
	Easing   string `json:"easing"`
}

// Style returns the visual treatment for an effect.
// Only fade animates; the other effects hold the outgoing item hidden.
func Style(effect display.Effect) Visual {
	switch effect {
	case display.EffectFade:
		return Visual{Property: "opacity", Hidden: "0", Shown: "1", Easing: "ease-in-out"}
	default:
		return Visual{}
	}
}
