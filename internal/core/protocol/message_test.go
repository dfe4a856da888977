package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrame(t *testing.T) {
	raw := `{"type":"frame","seq":12,"payload":{"pose":{"position":{"x":0,"y":1.6,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":1}}}}`
	m, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, TypeFrame, m.Type)
	assert.Equal(t, uint64(12), m.Seq)

	var f Frame
	require.NoError(t, m.Decode(&f))
	require.NotNil(t, f.Pose)
	assert.Equal(t, 1.6, f.Pose.Position.Y)
	assert.Equal(t, 1.0, f.Pose.Orientation.W)
	assert.False(t, f.Pointer)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	_, err = Parse([]byte(`{"seq":1}`))
	assert.ErrorIs(t, err, ErrInvalidMessage)

	m, err := Parse([]byte(`{"type":"highlight"}`))
	assert.ErrorIs(t, err, ErrUnknownType, "server-only types are rejected from clients")
	assert.Equal(t, TypeHighlight, m.Type)
}

func TestDecodeMissingPayload(t *testing.T) {
	m, err := Parse([]byte(`{"type":"press"}`))
	require.NoError(t, err)
	var f Frame
	assert.NoError(t, m.Decode(&f))

	m.Payload = []byte(`"oops"`)
	assert.ErrorIs(t, m.Decode(&f), ErrInvalidMessage)
}

func TestNew(t *testing.T) {
	m, err := New(TypeHighlight, Target{ID: "next-image"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"next-image"}`, string(m.Payload))

	m, err = New(TypePress, nil)
	require.NoError(t, err)
	assert.Nil(t, m.Payload)

	_, err = New(TypeError, make(chan int))
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
