// Package agent runs the conversational orchestration loop: one model turn at
// a time, executing requested scheduling tools and feeding observations back
// until the model answers without further tool calls.
package agent

import (
	"context"
	"errors"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is a single operation request emitted by the model.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the observation returned to the model for one executed call.
type ToolResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

// Message is one entry in a conversation transcript. User messages carry Text,
// model messages carry Text and/or ToolCalls, tool messages carry ToolResults.
// The shape is JSON-stable because transcripts persist across requests.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ModelClient produces the next model turn for a conversation. The last
// history entry is the message being answered; earlier entries are context.
type ModelClient interface {
	Converse(ctx context.Context, system string, history []Message) (Message, error)
}

var (
	// ErrModelCallFailed reports an exhausted model retry budget.
	ErrModelCallFailed = errors.New("agent: model call failed")

	// ErrUnknownConversation reports a conversation ID with no stored
	// transcript.
	ErrUnknownConversation = errors.New("agent: unknown conversation")
)
