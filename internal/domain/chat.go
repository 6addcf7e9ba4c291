package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// onboarding service and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams tunes a single completion. A zero MaxTokens or a nil
// Temperature means the client default.
type GenerationParams struct {
	MaxTokens   int
	Temperature *float64
}
