package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFraming(t *testing.T) {
	raw, err := envelope("run-42", "released", map[string]int{"workers": 3})
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.Equal(t, "released", env.Type)
	assert.Equal(t, "run-42", env.RunID)
	assert.NotZero(t, env.TS)

	var data map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 3, data["workers"])
}

func TestEnvelopeRejectsUnmarshalable(t *testing.T) {
	_, err := envelope("run", "x", make(chan int))
	assert.Error(t, err)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish("anything", 1))
	assert.NoError(t, p.Close())
}
