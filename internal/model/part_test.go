package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romy/backend/internal/model"
)

func TestToolStateProgress(t *testing.T) {
	assert.True(t, model.ToolInputStreaming.InProgress())
	assert.True(t, model.ToolInputAvailable.InProgress())
	assert.False(t, model.ToolOutputAvailable.InProgress())
	assert.False(t, model.ToolOutputError.InProgress())
	assert.True(t, model.ToolOutputError.Terminal())
}

func TestDataStatusForwardOnly(t *testing.T) {
	// Terminal states never regress, loading never skips backwards.
	assert.True(t, model.DataLoading.CanAdvance(model.DataStreaming))
	assert.True(t, model.DataLoading.CanAdvance(model.DataSuccess))
	assert.True(t, model.DataStreaming.CanAdvance(model.DataStreaming))
	assert.True(t, model.DataStreaming.CanAdvance(model.DataError))
	assert.False(t, model.DataSuccess.CanAdvance(model.DataLoading))
	assert.False(t, model.DataSuccess.CanAdvance(model.DataStreaming))
	assert.False(t, model.DataError.CanAdvance(model.DataSuccess))
	assert.False(t, model.DataStreaming.CanAdvance(model.DataLoading))
}

func TestPartWireTags(t *testing.T) {
	b, err := model.MarshalPart(model.ToolPart{Tool: "search", State: model.ToolInputAvailable})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"tool-search"`)

	p, err := model.UnmarshalPart(b)
	require.NoError(t, err)
	tool, ok := p.(model.ToolPart)
	require.True(t, ok)
	assert.Equal(t, "search", tool.Tool)
	assert.Equal(t, model.ToolInputAvailable, tool.State)

	b, err = model.MarshalPart(model.DataPart{
		Kind:   model.DataKindActionItems,
		ID:     "p1",
		Status: model.DataStreaming,
		Items:  []model.SuggestionItem{{Action: "Review grant history"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"data-actionItems"`)

	p, err = model.UnmarshalPart(b)
	require.NoError(t, err)
	data, ok := p.(model.DataPart)
	require.True(t, ok)
	assert.Equal(t, model.DataStreaming, data.Status)
	require.Len(t, data.Items, 1)

	_, err = model.UnmarshalPart([]byte(`{"type":"banner"}`))
	assert.Error(t, err)
}
