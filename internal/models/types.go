package models

import "strings"

// Kind is the closed set of actions the agent can produce.
type Kind string

const (
	KindNavigate      Kind = "navigate"
	KindBook          Kind = "book"
	KindPay           Kind = "pay"
	KindSearch        Kind = "search"
	KindEvents        Kind = "events"
	KindProfileGet    Kind = "profile_get"
	KindProfileUpdate Kind = "profile_update"
	KindFeedback      Kind = "feedback"
	KindWeather       Kind = "weather"
	KindTravel        Kind = "travel"
	KindOpenModal     Kind = "open_modal"
	KindScroll        Kind = "scroll"
	KindGeneral       Kind = "general"
)

// Kinds lists every valid kind in heuristic priority order.
var Kinds = []Kind{
	KindNavigate,
	KindBook,
	KindPay,
	KindSearch,
	KindEvents,
	KindProfileGet,
	KindProfileUpdate,
	KindFeedback,
	KindWeather,
	KindTravel,
	KindOpenModal,
	KindScroll,
	KindGeneral,
}

// Aliases used by older clients and by model output.
var kindAliases = map[string]Kind{
	"payment":             KindPay,
	"process_payment":     KindPay,
	"profile":             KindProfileGet,
	"profile_data":        KindProfileGet,
	"get_user_profile":    KindProfileGet,
	"profile_updated":     KindProfileUpdate,
	"update_user_profile": KindProfileUpdate,
	"modal":               KindOpenModal,
	"scroll_to_section":   KindScroll,
	"search_results":      KindSearch,
	"search_monasteries":  KindSearch,
	"events_list":         KindEvents,
	"get_events":          KindEvents,
	"navigate_to_page":    KindNavigate,
	"book_tickets":        KindBook,
	"booking":             KindBook,
	"submit_feedback":     KindFeedback,
	"feedback_submitted":  KindFeedback,
	"get_weather":         KindWeather,
	"weather_info":        KindWeather,
	"get_travel_info":     KindTravel,
	"travel_info":         KindTravel,
}

// ParseKind maps s onto a Kind. Unknown values yield KindGeneral and ok=false.
func ParseKind(s string) (Kind, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if string(k) == key {
			return k, true
		}
	}
	if k, ok := kindAliases[key]; ok {
		return k, true
	}
	return KindGeneral, false
}

// Intent is the structured reading of a single user message.
type Intent struct {
	Kind       Kind           `json:"kind"`
	Parameters map[string]any `json:"parameters"`
}

// GeneralIntent is the catch-all intent for unrecognized input.
func GeneralIntent() Intent {
	return Intent{Kind: KindGeneral, Parameters: map[string]any{}}
}

// AgentResponse is returned to every transport.
type AgentResponse struct {
	Message string  `json:"message"`
	Action  *Kind   `json:"action"`
	Target  *string `json:"target"`
	Data    any     `json:"data"`
}

// Conversational builds a reply with no action attached.
func Conversational(message string) *AgentResponse {
	return &AgentResponse{Message: message}
}

// ChatRequest is the inbound payload shared by HTTP and NATS.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// ChatResponse is what the web frontend consumes.
type ChatResponse struct {
	Reply  string  `json:"reply"`
	Action *Kind   `json:"action"`
	Target *string `json:"target"`
	Data   any     `json:"data"`
	// Only set on transport-level failures.
	ErrorCode *string `json:"errorCode,omitempty"`
}

// ToChatResponse converts an AgentResponse into the frontend shape.
func (r *AgentResponse) ToChatResponse() *ChatResponse {
	return &ChatResponse{
		Reply:  r.Message,
		Action: r.Action,
		Target: r.Target,
		Data:   r.Data,
	}
}

// Error codes
const (
	ErrorParseError = "PARSE_ERROR"
	ErrorInternal   = "INTERNAL_ERROR"
)
