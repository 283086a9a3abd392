package replay

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brensch/tetrisbot/internal/executor"
	"github.com/brensch/tetrisbot/internal/search"
)

func TestEncodeDecodeRoundTrips(t *testing.T) {
	w := NewWriter(Header{PlayerName: "bot", QueueSeed: 7, GarbageSeed: 9, Options: search.DefaultOptions()})
	w.Record(Frame{Tick: 0, Buttons: executor.Buttons{Left: true}})
	w.Record(Frame{Tick: 1, Buttons: executor.Buttons{HardDrop: true}, Info: &search.Info{Nodes: 42, Depth: 3}})

	data, err := w.Encode()
	require.NoError(t, err)

	header, frames, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "bot", header.PlayerName)
	assert.Equal(t, int64(7), header.QueueSeed)
	require.Len(t, frames, 2)
	assert.True(t, frames[0].Buttons.Left)
	require.NotNil(t, frames[1].Info)
	assert.Equal(t, 42, frames[1].Info.Nodes)
}

func TestNewWriterGeneratesIDWhenAbsent(t *testing.T) {
	w := NewWriter(Header{})
	assert.NotEmpty(t, w.header.ID)
}
