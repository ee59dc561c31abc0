package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements ModelClient using Google's Gemini API with function
// calling enabled for the receptionist tool set.
type GeminiClient struct {
	client       *genai.Client
	modelID      string
	declarations []*genai.FunctionDeclaration
}

// NewGeminiClient creates a Gemini-backed model client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string, declarations []*genai.FunctionDeclaration) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("agent: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("agent: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		modelID:      modelID,
		declarations: declarations,
	}, nil
}

// Converse sends the conversation to Gemini and returns the model's turn.
func (c *GeminiClient) Converse(ctx context.Context, system string, history []Message) (Message, error) {
	if len(history) == 0 {
		return Message{}, errors.New("agent: gemini requires at least one message")
	}

	model := c.client.GenerativeModel(c.modelID)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}
	if len(c.declarations) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: c.declarations}}
	}

	// Rebuild the chat from the transcript: everything before the last
	// message is history, the last message is what we are answering.
	cs := model.StartChat()
	for _, msg := range history[:len(history)-1] {
		if content := toContent(msg); content != nil {
			cs.History = append(cs.History, content)
		}
	}

	parts := toParts(history[len(history)-1])
	if len(parts) == 0 {
		return Message{}, errors.New("agent: cannot send an empty message")
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return Message{}, fmt.Errorf("agent: gemini completion failed: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Message{}, errors.New("agent: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return Message{}, errors.New("agent: gemini returned empty content")
	}

	turn := Message{Role: RoleModel}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			turn.ToolCalls = append(turn.ToolCalls, ToolCall{Name: p.Name, Args: p.Args})
		}
	}
	turn.Text = strings.TrimSpace(text.String())
	return turn, nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func toContent(msg Message) *genai.Content {
	parts := toParts(msg)
	if len(parts) == 0 {
		return nil
	}
	role := "user"
	switch msg.Role {
	case RoleModel:
		role = "model"
	case RoleTool:
		role = "function"
	}
	return &genai.Content{Role: role, Parts: parts}
}

func toParts(msg Message) []genai.Part {
	var parts []genai.Part
	if msg.Role == RoleTool {
		for _, result := range msg.ToolResults {
			parts = append(parts, genai.FunctionResponse{Name: result.Name, Response: result.Response})
		}
		return parts
	}
	if msg.Text != "" {
		parts = append(parts, genai.Text(msg.Text))
	}
	for _, call := range msg.ToolCalls {
		parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
	}
	return parts
}
