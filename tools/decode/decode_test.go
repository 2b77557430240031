package decode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	ThreadID string   `json:"threadId"`
	Count    int      `json:"count"`
	IDs      []string `json:"ids"`
}

func TestPayloadDecodesByJSONTag(t *testing.T) {
	p, err := Payload[samplePayload](json.RawMessage(`{"threadId":"t1","count":3,"ids":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, "t1", p.ThreadID)
	assert.Equal(t, 3, p.Count)
	assert.Equal(t, []string{"a", "b"}, p.IDs)
}

func TestPayloadWeakTypingAndUnknownFields(t *testing.T) {
	// clients sending numbers as strings still decode
	p, err := Payload[samplePayload](json.RawMessage(`{"count":"7","surprise":true}`))
	require.NoError(t, err)
	assert.Equal(t, 7, p.Count)
}

func TestPayloadRejectsNonObject(t *testing.T) {
	_, err := Payload[samplePayload](json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
}
