package task

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRequestFieldPresence(t *testing.T) {
	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"title":"New","assigned_agent_id":null}`), &req))

	assert.True(t, req.Title.Valid)
	assert.Equal(t, "New", req.Title.Value)

	// null is present but zero: this is how an operator clears an assignment.
	assert.True(t, req.AssignedAgentID.Valid)
	assert.Equal(t, "", req.AssignedAgentID.Value)

	// Omitted fields stay invalid and are never evaluated.
	assert.False(t, req.Description.Valid)
	assert.False(t, req.Status.Valid)
	assert.False(t, req.Comment.Valid)
}

func TestUpdateRequestHasComment(t *testing.T) {
	var req UpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"comment":""}`), &req))
	assert.False(t, req.HasComment())

	require.NoError(t, json.Unmarshal([]byte(`{"comment":"done"}`), &req))
	assert.True(t, req.HasComment())
}
