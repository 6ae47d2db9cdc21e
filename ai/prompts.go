package ai

import (
	"embed"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.txt
var defaultPrompts embed.FS

// Prompt template names.
const (
	PromptInsights = "insights"
	PromptStory    = "story"
)

// PromptManager loads prompt templates. Files in OverrideDir take precedence
// over the built-in templates.
type PromptManager struct {
	OverrideDir string
}

// NewPromptManager creates a prompt manager
func NewPromptManager(overrideDir string) *PromptManager {
	if overrideDir != "" {
		log.Printf("[PromptManager] Using prompt overrides from: %s", overrideDir)
	}
	return &PromptManager{OverrideDir: overrideDir}
}

// LoadPrompt loads a prompt template by name
func (pm *PromptManager) LoadPrompt(name string) (string, error) {
	if pm != nil && pm.OverrideDir != "" {
		content, err := os.ReadFile(filepath.Join(pm.OverrideDir, name+".txt"))
		if err == nil {
			return string(content), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("failed to load prompt %s: %w", name, err)
		}
	}

	content, err := defaultPrompts.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		return "", fmt.Errorf("prompt template not found: %s", name)
	}
	return string(content), nil
}

// RenderPrompt replaces {PLACEHOLDER} with values
func (pm *PromptManager) RenderPrompt(name string, replacements map[string]string) (string, error) {
	template, err := pm.LoadPrompt(name)
	if err != nil {
		return "", err
	}

	pairs := make([]string, 0, len(replacements)*2)
	for placeholder, value := range replacements {
		pairs = append(pairs, "{"+placeholder+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template), nil
}
