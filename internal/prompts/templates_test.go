package prompts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monastery360/agent/internal/models"
)

func TestParseIntentResponseWithSurroundingProse(t *testing.T) {
	content := "Sure! Here you go:\n```json\n{\"action\": \"book\", \"parameters\": {\"eventId\": \"rumtek\", \"quantity\": 2}}\n```\nAnything else? {\"not\": \"this\"}"

	intent, err := ParseIntentResponse(content)
	require.NoError(t, err)
	assert.Equal(t, models.KindBook, intent.Kind)
	assert.Equal(t, "rumtek", intent.Parameters["eventId"])
	assert.Equal(t, float64(2), intent.Parameters["quantity"])
}

func TestParseIntentResponseAliases(t *testing.T) {
	intent, err := ParseIntentResponse(`{"action": "payment", "parameters": {"amount": 500}}`)
	require.NoError(t, err)
	assert.Equal(t, models.KindPay, intent.Kind)
}

func TestParseIntentResponseDropsNullSlots(t *testing.T) {
	intent, err := ParseIntentResponse(`{"action": "weather", "parameters": {"location": null, "days": 2}}`)
	require.NoError(t, err)
	_, has := intent.Parameters["location"]
	assert.False(t, has)
	assert.Equal(t, float64(2), intent.Parameters["days"])
}

func TestParseIntentResponseRejectsBadPayloads(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"no json", "I think you want to book", ErrNoJSON},
		{"unknown action", `{"action": "teleport", "parameters": {}}`, ErrMalformed},
		{"missing action", `{"parameters": {}}`, ErrMalformed},
		{"array parameters", `{"action": "book", "parameters": [1, 2]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIntentResponse(tt.content)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestParseIntentResponseTruncatedJSON(t *testing.T) {
	_, err := ParseIntentResponse(`{"action": "book", "parameters": {`)
	assert.Error(t, err)
}

func TestBuildIntentPromptListsActions(t *testing.T) {
	prompt := BuildIntentPrompt([]ActionSchema{
		{Kind: models.KindBook, Parameters: []string{"eventId", "quantity"}},
	}, "book 2 tickets")

	assert.Contains(t, prompt, "- book: parameters [eventId, quantity]")
	assert.Contains(t, prompt, "- general: parameters []")
	assert.Contains(t, prompt, `User message: "book 2 tickets"`)
}

func TestBuildPersonaPromptHistory(t *testing.T) {
	withHistory := BuildPersonaPrompt("User: hi\nAssistant: hello\n", "tell me more")
	assert.Contains(t, withHistory, "Previous conversation:\nUser: hi")
	assert.Contains(t, withHistory, "User message: tell me more")

	without := BuildPersonaPrompt("  ", "tell me more")
	assert.NotContains(t, without, "Previous conversation")
}
