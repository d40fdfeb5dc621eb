package assistant

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Message is a thread message reduced to its role and text parts.
type Message struct {
	Role  string
	Parts []string
}

// Backend is the subset of the Assistants API the answer protocol needs.
type Backend interface {
	CreateThread(ctx context.Context) (string, error)
	AddUserMessage(ctx context.Context, threadID, text string) error
	StartRun(ctx context.Context, threadID, assistantID string) (string, error)
	RunStatus(ctx context.Context, threadID, runID string) (openai.RunStatus, error)
	CancelRun(ctx context.Context, threadID, runID string) error
	// LatestMessages lists up to limit messages produced by runID, newest first.
	LatestMessages(ctx context.Context, threadID, runID string, limit int) ([]Message, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// OpenAIBackend implements Backend with go-openai.
type OpenAIBackend struct {
	client *openai.Client
}

func NewOpenAIBackend(client *openai.Client) *OpenAIBackend {
	return &OpenAIBackend{client: client}
}

// EnsureAssistant returns the ID of the assistant to run. An existing
// assistant is looked up by id; otherwise one is created from persona.
func (b *OpenAIBackend) EnsureAssistant(ctx context.Context, id string, persona Persona) (string, error) {
	if id != "" {
		a, err := b.client.RetrieveAssistant(ctx, id)
		if err != nil {
			return "", fmt.Errorf("assistant: retrieve %s: %w", id, err)
		}
		return a.ID, nil
	}

	a, err := b.client.CreateAssistant(ctx, persona.request())
	if err != nil {
		return "", fmt.Errorf("assistant: create: %w", err)
	}
	return a.ID, nil
}

func (b *OpenAIBackend) CreateThread(ctx context.Context) (string, error) {
	t, err := b.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

func (b *OpenAIBackend) AddUserMessage(ctx context.Context, threadID, text string) error {
	_, err := b.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})
	return err
}

func (b *OpenAIBackend) StartRun(ctx context.Context, threadID, assistantID string) (string, error) {
	run, err := b.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: assistantID})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (b *OpenAIBackend) RunStatus(ctx context.Context, threadID, runID string) (openai.RunStatus, error) {
	run, err := b.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return "", err
	}
	return run.Status, nil
}

func (b *OpenAIBackend) CancelRun(ctx context.Context, threadID, runID string) error {
	_, err := b.client.CancelRun(ctx, threadID, runID)
	return err
}

func (b *OpenAIBackend) LatestMessages(ctx context.Context, threadID, runID string, limit int) ([]Message, error) {
	order := "desc"
	var run *string
	if runID != "" {
		run = &runID
	}

	list, err := b.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, run)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		msg := Message{Role: m.Role}
		for _, c := range m.Content {
			if c.Text != nil {
				msg.Parts = append(msg.Parts, c.Text.Value)
			}
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (b *OpenAIBackend) DeleteThread(ctx context.Context, threadID string) error {
	_, err := b.client.DeleteThread(ctx, threadID)
	return err
}
