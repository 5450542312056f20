// Package llm wraps the Anthropic SDK behind a small client interface so
// the router and document classifier can be tested with a fake.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Client defines the model operations used by the assistant.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is our own request type for CreateMessage.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      string
	Messages    []Message
	Tools       []ToolDef
	Temperature *float64
}

// Message is a single conversational message made of content blocks.
type Message struct {
	Role   string // "user" or "assistant"
	Blocks []Block
}

// Block is one content block in a message, request or response side.
type Block struct {
	Type string // "text", "image", "tool_use", "tool_result"

	Text string

	// image blocks
	MediaType string
	Data      []byte

	// tool_use / tool_result blocks
	ToolID    string
	ToolName  string
	ToolInput json.RawMessage
	ToolError bool
}

// ToolDef declares one tool the model may call.
type ToolDef struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// MessageResponse is our own response type from CreateMessage.
type MessageResponse struct {
	ID         string
	StopReason string
	Blocks     []Block
	Usage      TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Text concatenates all text blocks of the response.
func (r *MessageResponse) Text() string {
	var out string
	for _, b := range r.Blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// ToolUses returns the tool_use blocks of the response.
func (r *MessageResponse) ToolUses() []Block {
	var uses []Block
	for _, b := range r.Blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// TextMessage builds a single-text-block message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Blocks: []Block{{Type: "text", Text: text}}}
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: create message: %w", err)
	}

	return fromSDKMessage(msg), nil
}

// --- SDK type conversion helpers ---

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Blocks))
		for _, b := range m.Blocks {
			switch b.Type {
			case "image":
				blocks = append(blocks, sdk.NewImageBlockBase64(
					b.MediaType, base64.StdEncoding.EncodeToString(b.Data)))
			case "tool_use":
				blocks = append(blocks, sdk.NewToolUseBlock(b.ToolID, b.ToolInput, b.ToolName))
			case "tool_result":
				blocks = append(blocks, sdk.NewToolResultBlock(b.ToolID, b.Text, b.ToolError))
			default:
				blocks = append(blocks, sdk.NewTextBlock(b.Text))
			}
		}
		if m.Role == "assistant" {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
	}
	return out
}

func toSDKTools(tools []ToolDef) []sdk.ToolUnionParam {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		tool := sdk.ToolParam{
			Name:        t.Name,
			Description: sdk.String(t.Description),
			InputSchema: sdk.ToolInputSchemaParam{
				Properties: t.Properties,
				Required:   t.Required,
			},
		}
		out = append(out, sdk.ToolUnionParam{OfTool: &tool})
	}
	return out
}

func fromSDKMessage(msg *sdk.Message) *MessageResponse {
	blocks := make([]Block, 0, len(msg.Content))
	for _, b := range msg.Content {
		switch b.Type {
		case "tool_use":
			blocks = append(blocks, Block{
				Type:      "tool_use",
				ToolID:    b.ID,
				ToolName:  b.Name,
				ToolInput: json.RawMessage(b.JSON.Input.Raw()),
			})
		default:
			blocks = append(blocks, Block{Type: b.Type, Text: b.Text})
		}
	}

	return &MessageResponse{
		ID:         msg.ID,
		StopReason: string(msg.StopReason),
		Blocks:     blocks,
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
}
