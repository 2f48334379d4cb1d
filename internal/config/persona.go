package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ChamsBouzaiene/nora/internal/discovery"
	"github.com/ChamsBouzaiene/nora/internal/oracle"
)

// Persona is the character sheet: the system prompt plus the seeds the
// core needs at startup. Unset fields fall back to DefaultPersona.
type Persona struct {
	Name              string   `yaml:"name"`
	SystemPrompt      string   `yaml:"system_prompt"`
	Goals             []string `yaml:"goals"`
	EmotionalState    string   `yaml:"emotional_state"`
	PluginKeywords    []string `yaml:"plugin_keywords"`
	BootstrapCommands []string `yaml:"bootstrap_commands"`
	RecoveryCommand   string   `yaml:"recovery_command"`
}

// DefaultPersona returns the built-in persona.
func DefaultPersona() Persona {
	return Persona{
		Name:              "Nora",
		SystemPrompt:      oracle.DefaultPersona,
		Goals:             []string{"Protect the player", "Analyze Server Plugins", "Teach STEM"},
		EmotionalState:    "Stable",
		PluginKeywords:    append([]string(nil), discovery.DefaultPluginKeywords...),
		BootstrapCommands: []string{"/help", "/plugins"},
		RecoveryCommand:   "/home",
	}
}

// LoadPersona reads a YAML persona from path. An empty path returns the
// default persona.
func LoadPersona(path string) (Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("failed to read persona file: %w", err)
	}
	return ParsePersona(data)
}

// ParsePersona decodes YAML and fills unset fields from DefaultPersona.
func ParsePersona(data []byte) (Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona yaml: %w", err)
	}
	def := DefaultPersona()
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = def.SystemPrompt
	}
	if len(p.Goals) == 0 {
		p.Goals = def.Goals
	}
	if p.EmotionalState == "" {
		p.EmotionalState = def.EmotionalState
	}
	if p.PluginKeywords == nil {
		p.PluginKeywords = def.PluginKeywords
	}
	if p.BootstrapCommands == nil {
		p.BootstrapCommands = def.BootstrapCommands
	}
	if p.RecoveryCommand == "" {
		p.RecoveryCommand = def.RecoveryCommand
	}
	return p, nil
}
