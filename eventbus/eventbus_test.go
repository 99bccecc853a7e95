package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/eventbus"
)

type payload struct {
	AnalysisID string `json:"analysis_id"`
	Reviews    int    `json:"reviews"`
}

func TestNewJSONEvent(t *testing.T) {
	evt, err := eventbus.NewJSONEvent("", "analysis.completed", payload{AnalysisID: "a-1", Reviews: 42})
	require.NoError(t, err)
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "analysis.completed", evt.Type)

	decoded, err := eventbus.DecodeJSON[payload](evt)
	require.NoError(t, err)
	assert.Equal(t, payload{AnalysisID: "a-1", Reviews: 42}, decoded)
}

func TestNewJSONEventRejectsUnmarshalable(t *testing.T) {
	_, err := eventbus.NewJSONEvent("id", "x", make(chan int))
	assert.Error(t, err)
}
