// Package agent hosts the LLM classifier that maps free-text job
// descriptions onto profession tags.
package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"marketplace_backend/platform/ai/moonshot"
)

const tagGeneratorApp = "tag-generator"

// TagGenerator classifies descriptions into professions.
type TagGenerator struct {
	runner         *runner.Runner
	sessionService session.Service
	runMu          sync.Mutex
}

// NewTagGenerator builds the generator on the Moonshot model.
func NewTagGenerator(apiKey, modelName string) (*TagGenerator, error) {
	kimi := moonshot.NewModel(moonshot.Config{
		APIKey:          apiKey,
		Model:           modelName,
		DisableThinking: true,
		JSONMode:        true,
	})
	return NewTagGeneratorWithModel(kimi)
}

// NewTagGeneratorWithModel builds the generator on any ADK model.
func NewTagGeneratorWithModel(llm model.LLM) (*TagGenerator, error) {
	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "TagGenerator",
		Model:       llm,
		Description: "Classifies home-service job descriptions into profession tags.",
		Instruction: tagGeneratorSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag generator agent: %w", err)
	}

	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        tagGeneratorApp,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tag generator runner: %w", err)
	}

	return &TagGenerator{runner: r, sessionService: sessionService}, nil
}

// SuggestTags asks the model for professions matching prompt, preferring
// names from existing so the vocabulary does not fragment.
func (g *TagGenerator) SuggestTags(ctx context.Context, prompt string, existing []string) ([]Suggestion, error) {
	g.runMu.Lock()
	defer g.runMu.Unlock()

	sessionID := uuid.New().String()
	userID := "tagger"

	if _, err := g.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   tagGeneratorApp,
		UserID:    userID,
		SessionID: sessionID,
	}); err != nil {
		return nil, fmt.Errorf("tag generator: create session: %w", err)
	}
	defer func() {
		_ = g.sessionService.Delete(context.WithoutCancel(ctx), &session.DeleteRequest{
			AppName:   tagGeneratorApp,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	msg := genai.NewContentFromText(buildTagPrompt(prompt, existing), genai.RoleUser)
	runConfig := agent.RunConfig{StreamingMode: agent.StreamingModeNone}

	var out strings.Builder
	for event, err := range g.runner.Run(ctx, userID, sessionID, msg, runConfig) {
		if err != nil {
			return nil, fmt.Errorf("tag generator: run failed: %w", err)
		}
		if event.Content == nil {
			continue
		}
		for _, part := range event.Content.Parts {
			out.WriteString(part.Text)
		}
	}

	return ParseSuggestions(out.String())
}

func buildTagPrompt(description string, existing []string) string {
	vocabulary := "(none yet)"
	if len(existing) > 0 {
		vocabulary = strings.Join(existing, ", ")
	}
	return fmt.Sprintf(`Job description:
%s

Known professions:
%s

Return a JSON object {"tags": [{"profession": "...", "description": "...", "confidence": 0.0}]}.
Rules:
- Use a known profession name verbatim when it fits.
- At most 5 tags, most relevant first.
- confidence is between 0 and 1.
- Use Spanish names in singular, e.g. "Plomero", "Electricista".
`, strings.TrimSpace(description), vocabulary)
}

const tagGeneratorSystemPrompt = "You classify home-service jobs into trades. Answer with JSON only, no prose."
