package assistant

import "github.com/sashabaranov/go-openai"

// Persona is the fixed assistant configuration shared by every request.
type Persona struct {
	Name         string
	Instructions string
	Model        string
	Tools        []string
}

func (p Persona) request() openai.AssistantRequest {
	req := openai.AssistantRequest{
		Model: p.Model,
	}
	if p.Name != "" {
		name := p.Name
		req.Name = &name
	}
	if p.Instructions != "" {
		instructions := p.Instructions
		req.Instructions = &instructions
	}
	for _, tool := range p.Tools {
		req.Tools = append(req.Tools, openai.AssistantTool{Type: openai.AssistantToolType(tool)})
	}
	return req
}
