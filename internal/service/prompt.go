package service

import (
	"fmt"
	"strings"

	"github.com/marca-labs/brandgov/internal/domain"
)

// DefaultPromptBudget bounds the assembled user prompt in runes.
const DefaultPromptBudget = 6000

// PromptComposer assembles generation prompts from retrieved manual
// context under a fixed length budget. Assembly is deterministic for the
// same ranked input and budget: when over budget, the lowest-ranked chunks
// are dropped first.
type PromptComposer struct {
	budget int
}

// NewPromptComposer creates a PromptComposer with the given rune budget.
func NewPromptComposer(budget int) *PromptComposer {
	if budget <= 0 {
		budget = DefaultPromptBudget
	}
	return &PromptComposer{budget: budget}
}

// ComposeInput carries the template fields for a creative generation prompt.
type ComposeInput struct {
	AssetType   domain.AssetType
	Brief       string
	ProductName string
	Tone        string
	Audience    string
}

var taskByAssetType = map[domain.AssetType]string{
	domain.AssetTypeProductDescription: "Write a product description ready for e-commerce.",
	domain.AssetTypeVideoScript:        "Write a short vertical video script (30-45s).",
	domain.AssetTypeImagePrompt:        "Write a hyper-clear image prompt for a visual generator.",
}

// Compose builds the system and user prompts for creative generation.
func (c *PromptComposer) Compose(input ComposeInput, ranked []domain.ScoredChunk) (systemPrompt, userPrompt string) {
	systemPrompt = "You are a senior copywriter focused on performance and brand consistency."

	header := fmt.Sprintf(
		"Task: %s\nBrief: %s\nProduct: %s\nTone: %s\nAudience: %s\n\nMandatory brand manual context (must be respected):\n",
		taskByAssetType[input.AssetType],
		input.Brief,
		input.ProductName,
		input.Tone,
		input.Audience,
	)
	footer := "\n\nIf anything conflicts, the manual's rules win."

	fixed := len([]rune(header)) + len([]rune(footer))
	context := c.fitContext(ranked, c.budget-fixed)

	userPrompt = header + context + footer
	return systemPrompt, userPrompt
}

// FitContext joins ranked chunk texts within the composer's budget,
// dropping the lowest-ranked chunks first.
func (c *PromptComposer) FitContext(ranked []domain.ScoredChunk) string {
	return c.fitContext(ranked, c.budget)
}

func (c *PromptComposer) fitContext(ranked []domain.ScoredChunk, budget int) string {
	if budget <= 0 || len(ranked) == 0 {
		return ""
	}

	kept := len(ranked)
	for kept > 0 {
		if contextLength(ranked[:kept]) <= budget {
			break
		}
		kept--
	}

	parts := make([]string, 0, kept)
	for _, sc := range ranked[:kept] {
		parts = append(parts, sc.Chunk.ChunkText)
	}
	return strings.Join(parts, "\n\n")
}

func contextLength(ranked []domain.ScoredChunk) int {
	total := 0
	for i, sc := range ranked {
		if i > 0 {
			total += 2 // joining blank line
		}
		total += len([]rune(sc.Chunk.ChunkText))
	}
	return total
}
