package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/monastery360/agent/internal/models"
)

const IntentPrompt = `You are the intent parser for Monastery360, a monastery tourism website in Sikkim, India. Your job is to map one user message onto exactly one website action.

IMPORTANT RULES:
1. Pick ONE action, even if several are mentioned. Prefer the first one mentioned.
2. Only use the actions listed below. Use "general" for questions and small talk.
3. Only include parameters you can read from the message.

RESPONSE FORMAT:
Respond with JSON only, in this exact shape:
{
  "action": "ACTION_NAME",
  "parameters": {
    "param_name": "extracted value"
  }
}

Available Actions:
%s
Examples:
- "Go to bookings" -> {"action": "navigate", "parameters": {"page": "/bookings"}}
- "Book 2 tickets for Rumtek" -> {"action": "book", "parameters": {"eventId": "rumtek", "quantity": 2}}
- "Pay ₹500 for donation" -> {"action": "pay", "parameters": {"amount": 500, "type": "donation"}}
- "Search for monasteries with AR" -> {"action": "search", "parameters": {"query": "monasteries", "features": ["AR"]}}
- "Show me events" -> {"action": "events", "parameters": {}}
- "What's my profile?" -> {"action": "profile_get", "parameters": {}}
- "Submit feedback about visit" -> {"action": "feedback", "parameters": {"content": "about visit", "type": "feedback"}}
- "Weather in Gangtok" -> {"action": "weather", "parameters": {"location": "Gangtok"}}
- "How to get to Sikkim" -> {"action": "travel", "parameters": {"to": "Sikkim"}}
- "Open booking form" -> {"action": "open_modal", "parameters": {"modalType": "booking_form"}}
- "Scroll to events" -> {"action": "scroll", "parameters": {"section": "events"}}
- "Tell me about Buddhism" -> {"action": "general", "parameters": {}}

User message: %q`

const PersonaPrompt = `You are Monastery360 Assistant, a helpful AI for a monastery tourism website in Sikkim, India.

You can help users with:
- Information about monasteries in Sikkim
- Travel planning and recommendations
- Buddhist culture and traditions
- Local attractions and events
- Booking assistance
- General questions about the website

%sUser message: %s

Respond naturally and helpfully. If the user seems to want to do something specific (like book tickets, navigate somewhere, etc.), mention that you can help with that.`

// User-facing fallback texts.
const (
	StaticFallbackMessage = "I'm here to help you explore the beautiful monasteries of Sikkim! How can I assist you today?"
	ErrorMessage          = "I'm sorry, I encountered an error. Please try again."
	GreetingMessage       = "Hello! How can I help you explore Sikkim's monasteries?"
)

var (
	ErrNoJSON    = errors.New("no JSON object found in response")
	ErrMalformed = errors.New("malformed intent payload")
)

// ActionSchema describes one action for the intent prompt.
type ActionSchema struct {
	Kind       models.Kind
	Parameters []string
}

func BuildIntentPrompt(actions []ActionSchema, userMessage string) string {
	return fmt.Sprintf(IntentPrompt, buildActionsSection(actions), userMessage)
}

func buildActionsSection(actions []ActionSchema) string {
	var builder strings.Builder

	for _, action := range actions {
		builder.WriteString(fmt.Sprintf("- %s: parameters [%s]\n",
			action.Kind,
			strings.Join(action.Parameters, ", ")))
	}
	builder.WriteString("- general: parameters []\n")

	return builder.String()
}

// BuildPersonaPrompt renders the conversation prompt. history may be empty.
func BuildPersonaPrompt(history, userMessage string) string {
	section := ""
	if strings.TrimSpace(history) != "" {
		section = "Previous conversation:\n" + history + "\n"
	}
	return fmt.Sprintf(PersonaPrompt, section, userMessage)
}

type rawIntent struct {
	Action     *string         `json:"action"`
	Parameters json.RawMessage `json:"parameters"`
}

// ParseIntentResponse reads the first JSON object in content and validates its
// shape. Model output is untrusted: unknown actions and non-object parameters
// are rejected rather than guessed at.
func ParseIntentResponse(content string) (models.Intent, error) {
	start := strings.Index(content, "{")
	if start == -1 {
		return models.Intent{}, ErrNoJSON
	}

	var raw rawIntent
	dec := json.NewDecoder(strings.NewReader(content[start:]))
	if err := dec.Decode(&raw); err != nil {
		return models.Intent{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if raw.Action == nil {
		return models.Intent{}, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	kind, ok := models.ParseKind(*raw.Action)
	if !ok {
		return models.Intent{}, fmt.Errorf("%w: unknown action %q", ErrMalformed, *raw.Action)
	}

	params := map[string]any{}
	if len(raw.Parameters) > 0 && string(raw.Parameters) != "null" {
		if err := json.Unmarshal(raw.Parameters, &params); err != nil {
			return models.Intent{}, fmt.Errorf("%w: parameters must be an object", ErrMalformed)
		}
		// Models often emit null for slots they could not fill.
		for k, v := range params {
			if v == nil {
				delete(params, k)
			}
		}
	}

	return models.Intent{Kind: kind, Parameters: params}, nil
}
