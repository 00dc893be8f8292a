package livemap

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"simtelemetry/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkersFollowTheRingClockwise(t *testing.T) {
	rel := []model.RelativeCarEntry{
		{TrackPosNorm: 0.25},
		{TrackPosNorm: 0.5, LapsAhead: 1},
		{TrackPosNorm: 0.75, LapsAhead: -1},
		{TrackPosNorm: 0.1, InPit: true, LapsAhead: 1},
	}
	markers := Markers(400, model.TelemetrySnapshot{TrackPosNorm: 0}, rel)
	require.Len(t, markers, 5)

	// ring radius is 160 around (200, 200)
	assert.InDelta(t, 360, markers[0].X, 1e-9)
	assert.InDelta(t, 200, markers[0].Y, 1e-9)
	assert.InDelta(t, 200, markers[1].X, 1e-9)
	assert.InDelta(t, 360, markers[1].Y, 1e-9)
	assert.InDelta(t, 40, markers[2].X, 1e-9)

	assert.Equal(t, sameLapColor, markers[0].Color)
	assert.Equal(t, lapAhead, markers[1].Color)
	assert.Equal(t, lapBehind, markers[2].Color)
	assert.Equal(t, pitColor, markers[3].Color)

	player := markers[4]
	assert.True(t, player.Player)
	assert.InDelta(t, 200, player.X, 1e-9)
	assert.InDelta(t, 40, player.Y, 1e-9)
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, 128, model.TelemetrySnapshot{TrackPosNorm: 0.3}, []model.RelativeCarEntry{{TrackPosNorm: 0.31}}))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())

	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(background.R)*0x101, r)
	assert.Equal(t, uint32(background.G)*0x101, g)
	assert.Equal(t, uint32(background.B)*0x101, b)
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, 300, model.TelemetrySnapshot{}, nil))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `width="300" height="300" viewBox="0 0 300 300"`)
	assert.Contains(t, out, "</svg>")
}

func TestSizeOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePNG(&buf, MinSize-1, model.TelemetrySnapshot{}, nil))
	assert.Error(t, WriteSVG(&buf, MaxSize+1, model.TelemetrySnapshot{}, nil))
	assert.Zero(t, buf.Len())
}
