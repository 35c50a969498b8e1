package transition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/19screen/internal/domain/display"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name          string
		cfg           display.Config
		wantEffect    display.Effect
		wantHold      time.Duration
		wantImmediate bool
	}{
		{
			name:       "fade holds for the duration",
			cfg:        display.Config{Effect: display.EffectFade, TransitionDuration: 500 * time.Millisecond},
			wantEffect: display.EffectFade,
			wantHold:   500 * time.Millisecond,
		},
		{
			name:       "slide holds too",
			cfg:        display.Config{Effect: display.EffectSlide, TransitionDuration: time.Second},
			wantEffect: display.EffectSlide,
			wantHold:   time.Second,
		},
		{
			name:          "none is immediate",
			cfg:           display.Config{Effect: display.EffectNone, TransitionDuration: time.Second},
			wantEffect:    display.EffectNone,
			wantImmediate: true,
		},
		{
			name:          "zero duration degenerates to none",
			cfg:           display.Config{Effect: display.EffectZoom},
			wantEffect:    display.EffectNone,
			wantImmediate: true,
		},
		{
			name:       "unknown effect falls back to fade",
			cfg:        display.Config{Effect: "wipe", TransitionDuration: 200 * time.Millisecond},
			wantEffect: display.EffectFade,
			wantHold:   200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.cfg)
			assert.Equal(t, tt.wantEffect, p.Effect)
			assert.Equal(t, tt.wantHold, p.Hold)
			assert.Equal(t, tt.wantImmediate, p.Immediate())
		})
	}
}

func TestPlan_String(t *testing.T) {
	assert.Equal(t, "none", Plan{}.String())
	assert.Equal(t, "fade/500ms", Plan{Effect: display.EffectFade, Hold: 500 * time.Millisecond}.String())
}

func TestStyle(t *testing.T) {
	assert.Equal(t, "opacity", Style(display.EffectFade).Property)
	assert.Empty(t, Style(display.EffectSlide).Property)
	assert.Empty(t, Style(display.EffectNone).Property)
}
