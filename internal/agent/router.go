package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/vittam-ai/vittam-backend/internal/llm"
	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/services"
)

const (
	// tool round-trips allowed per chat turn
	maxToolIterations = 8

	historyLimit = 100

	routerTemperature = 0.1
	routerMaxTokens   = 1000

	agentType = "router"
)

// Reply is the outcome of one chat turn.
type Reply struct {
	Message string
	// document keys the assistant asked the customer to upload, with
	// already-verified types filtered out
	RequestedDocuments []string
	// set when a sanction was issued during this turn
	SanctionID string
}

// Router drives the conversational tool loop: it sends the transcript
// and the tool surface to the model, executes the tool calls the model
// makes against the session context and repeats until the model
// produces a final text reply.
type Router struct {
	client    llm.Client
	model     string
	caps      *Capabilities
	sessions  *services.SessionService
	documents *services.DocumentService
}

// NewRouter creates a new router instance
func NewRouter(client llm.Client, model string, caps *Capabilities, sessions *services.SessionService, documents *services.DocumentService) *Router {
	return &Router{
		client:    client,
		model:     model,
		caps:      caps,
		sessions:  sessions,
		documents: documents,
	}
}

// Chat handles one user message for the session.
func (r *Router) Chat(ctx context.Context, session *models.Session, userMessage string) (*Reply, error) {
	if err := r.sessions.AppendMessage(session.SessionID, "user", userMessage, ""); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	customer, err := r.sessions.Customer(session)
	if err != nil {
		return nil, err
	}
	docs, err := r.documents.List(session.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := r.sessions.History(session.SessionID, historyLimit)
	if err != nil {
		return nil, err
	}
	messages := make([]llm.Message, 0, len(history))
	for _, conv := range history {
		role := "user"
		if conv.Role == "assistant" {
			role = "assistant"
		}
		messages = append(messages, llm.TextMessage(role, conv.Content))
	}

	sc := NewSessionContext(session, customer)
	system := systemPrompt(session, customer, docs)
	temp := routerTemperature

	var reply string
	for i := 0; i < maxToolIterations; i++ {
		resp, err := r.client.CreateMessage(ctx, llm.MessageRequest{
			Model:       r.model,
			MaxTokens:   routerMaxTokens,
			System:      system,
			Messages:    messages,
			Tools:       r.caps.Tools(),
			Temperature: &temp,
		})
		if err != nil {
			return nil, err
		}

		uses := resp.ToolUses()
		if resp.StopReason != "tool_use" || len(uses) == 0 {
			reply = resp.Text()
			break
		}

		messages = append(messages, llm.Message{Role: "assistant", Blocks: resp.Blocks})

		results := make([]llm.Block, 0, len(uses))
		for _, use := range uses {
			output, err := r.caps.Invoke(ctx, sc, use.ToolName, use.ToolInput)
			if err != nil {
				log.Printf("[AGENT] tool %s failed: %v", use.ToolName, err)
				results = append(results, llm.Block{
					Type:      "tool_result",
					ToolID:    use.ToolID,
					Text:      fmt.Sprintf("Tool error: %v", err),
					ToolError: true,
				})
				continue
			}
			results = append(results, llm.Block{
				Type:   "tool_result",
				ToolID: use.ToolID,
				Text:   output,
			})
		}
		messages = append(messages, llm.Message{Role: "user", Blocks: results})
	}

	if reply == "" {
		reply = "I'm sorry, I couldn't complete that just now. Could you please rephrase or try again?"
	}

	if err := r.sessions.AppendMessage(session.SessionID, "assistant", reply, agentType); err != nil {
		return nil, fmt.Errorf("failed to record assistant message: %w", err)
	}

	requested, err := r.filterRequestedDocs(session.SessionID, sc.RequestedDocs)
	if err != nil {
		return nil, err
	}

	return &Reply{
		Message:            reply,
		RequestedDocuments: requested,
		SanctionID:         sc.SanctionID,
	}, nil
}

// filterRequestedDocs drops requested keys whose document is already
// verified, keeping canonical key order.
func (r *Router) filterRequestedDocs(sessionID string, requested map[string]bool) ([]string, error) {
	if len(requested) == 0 {
		return nil, nil
	}

	docs, err := r.documents.List(sessionID)
	if err != nil {
		return nil, err
	}
	verified := make(map[string]bool, len(docs))
	for _, doc := range docs {
		if doc.VerificationStatus == models.DocStatusVerified {
			verified[doc.DocType] = true
		}
	}

	var keys []string
	for _, key := range models.DocumentTypeKeys() {
		if requested[key] && !verified[key] {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
