// Package domain contains core domain types for the agentforge application.
package domain

import "slices"

// AgentConfig is a named assistant definition. Records are immutable once
// created; accessors hand out copies.
type AgentConfig struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt"`
	Tools        []string `json:"tools"`
	DocumentIDs  []string `json:"document_ids"`
}

// Clone returns a deep copy so callers cannot mutate shared slices.
func (a AgentConfig) Clone() AgentConfig {
	a.Tools = cloneStrings(a.Tools)
	a.DocumentIDs = cloneStrings(a.DocumentIDs)
	return a
}

// HasTool reports whether the agent lists the named tool.
func (a AgentConfig) HasTool(name string) bool {
	return slices.Contains(a.Tools, name)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return slices.Clone(in)
}
