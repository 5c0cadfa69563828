package domain

import (
	"encoding/json"
	"time"
)

// ============================================================
// Sessions, messages and prompts
// ============================================================

// Mode is the conversational phase a prompt belongs to. It is informational:
// behavior is always re-derived from State.
type Mode string

const (
	ModeOrchestrator      Mode = "orchestrator"
	ModeIntake            Mode = "intake"
	ModeUsage             Mode = "usage"
	ModeCoverage          Mode = "coverage"
	ModeDriverIdentity    Mode = "driver_identity"
	ModeDriverEligibility Mode = "driver_eligibility"
	ModeTelematics        Mode = "telematics"
	ModeRiskAssessment    Mode = "risk_assessment"
	ModePricing           Mode = "pricing"
	ModeCustomize         Mode = "customize"
	ModePayment           Mode = "payment"
	ModeDocument          Mode = "document"
)

// Command is a one-shot instruction derived from a single user input and
// consumed in the same turn. Commands are never persisted.
type Command string

const (
	CommandNone             Command = ""
	CommandNewQuote         Command = "new_quote"
	CommandModify           Command = "modify"
	CommandChangeCoverage   Command = "change_coverage"
	CommandChangePlan       Command = "change_plan"
	CommandChangeTelematics Command = "change_telematics"
	CommandKeepQuote        Command = "keep_quote"
	CommandCustomize        Command = "show_customize"
	CommandApplyAddons      Command = "apply_addons"
)

// Session is one conversation.
type Session struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CurrentMode Mode      `json:"current_mode"`
	Version     int       `json:"version"`
	State       State     `json:"state"`
}

// Role of a message author.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// QuickReply is a button offered with a prompt.
type QuickReply struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Card is a structured display attachment.
type Card struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// Message is one append-only entry of the conversation log.
type Message struct {
	ID             string       `json:"id"`
	SessionID      string       `json:"session_id"`
	Role           Role         `json:"role"`
	Content        string       `json:"content"`
	Mode           Mode         `json:"mode,omitempty"`
	QuickReplies   []QuickReply `json:"quick_replies,omitempty"`
	Cards          []Card       `json:"cards,omitempty"`
	MultiSelect    bool         `json:"multi_select,omitempty"`
	ShowBrandLogos bool         `json:"show_brand_logos,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Prompt is the next assistant turn computed from state.
// DataCollected is a JSON merge patch (RFC 7386) to apply onto the state.
type Prompt struct {
	Message        string          `json:"message"`
	Options        []QuickReply    `json:"quick_replies"`
	NextMode       Mode            `json:"next_mode"`
	Cards          []Card          `json:"cards,omitempty"`
	MultiSelect    bool            `json:"multi_select,omitempty"`
	ShowBrandLogos bool            `json:"show_brand_logos,omitempty"`
	DataCollected  json.RawMessage `json:"data_collected,omitempty"`
	Rule           string          `json:"-"`
}

// ChatRequest is the body of POST /v1/chat.
type ChatRequest struct {
	SessionID       string `json:"session_id"`
	Content         string `json:"content"`
	QuickReplyValue string `json:"quick_reply_value,omitempty"`
}

// ChatResult is returned after a processed turn.
type ChatResult struct {
	Message     *Message `json:"message"`
	State       State    `json:"state"`
	CurrentMode Mode     `json:"current_mode"`
}

// Transcript is a session with its full message log.
type Transcript struct {
	Session  *Session  `json:"session"`
	Messages []Message `json:"messages"`
}
