package render

import (
	"bytes"
	"image/gif"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/rules"
)

func TestFrameDrawsStackAndFallingPiece(t *testing.T) {
	b := rules.NewBoard()
	falling, ok := rules.Spawn(rules.T, b, rules.Row19Or20)
	require.True(t, ok)

	img, palette := Frame(Snapshot{Board: b, Falling: &falling})
	assert.Equal(t, canvasWidth, img.Bounds().Dx())
	assert.Equal(t, canvasHeight, img.Bounds().Dy())
	assert.NotEmpty(t, palette)
}

func TestRecorderEncodeGIFProducesOneFramePerSnapshot(t *testing.T) {
	var r Recorder
	b := rules.NewBoard()
	r.Add(Snapshot{Board: b})
	r.Add(Snapshot{Board: b, Combo: 2})
	r.Add(Snapshot{Board: b, B2B: true})

	data, err := r.EncodeGIF(13000, 200)
	require.NoError(t, err)

	decoded, err := gif.DecodeAll(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 3)
}

func TestRecorderEncodeGIFErrorsWithNoFrames(t *testing.T) {
	var r Recorder
	_, err := r.EncodeGIF(13000, 200)
	assert.Error(t, err)
}
