package capture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsNormalize(t *testing.T) {
	o := Options{URL: "http://127.0.0.1:8080/day/2026-01-24", OutputPath: "/tmp/x.png"}
	require.NoError(t, o.normalize())
	assert.Equal(t, DefaultWidth, o.Width)
	assert.Equal(t, DefaultHeight, o.Height)
	assert.Equal(t, DefaultTimeout, o.Timeout)

	o = Options{URL: "http://h/d", OutputPath: "p", Width: 10, Height: 20, Timeout: time.Second}
	require.NoError(t, o.normalize())
	assert.Equal(t, 10, o.Width)
	assert.Equal(t, 20, o.Height)
	assert.Equal(t, time.Second, o.Timeout)
}

func TestCapturePNG_ValidatesBeforeLaunching(t *testing.T) {
	ctx := context.Background()
	assert.ErrorContains(t, CapturePNG(ctx, Options{OutputPath: "x.png"}), "URL is required")
	assert.ErrorContains(t, CapturePNG(ctx, Options{URL: "day/2026-01-24", OutputPath: "x.png"}), "invalid URL")
	assert.ErrorContains(t, CapturePNG(ctx, Options{URL: "http://h/d"}), "OutputPath is required")
}

func TestDayURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080/day/2026-01-24", DayURL("127.0.0.1:8080", "2026-01-24"))
	assert.Equal(t, "http://127.0.0.1:9000/day/2026-01-24", DayURL(":9000", "2026-01-24"))
}
