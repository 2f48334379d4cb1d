// Package discovery tracks server commands and plugins the agent has seen
// mentioned in chat.
package discovery

import (
	"regexp"
	"strings"
)

// MaxSurfacedCommands caps how many commands are shown to the oracle.
const MaxSurfacedCommands = 20

// DefaultPluginKeywords is the watch-list scanned in every chat line.
var DefaultPluginKeywords = []string{"Economy", "Essentials", "Jobs", "McMMO", "Claims"}

var commandPattern = regexp.MustCompile(`/[A-Za-z0-9_]+`)

// Registry is append-only and de-duplicated for the process lifetime. The
// plugin set is unbounded; the watch-list keeps it small in practice.
type Registry struct {
	commands   []string
	commandSet map[string]struct{}
	plugins    []string
	pluginSet  map[string]struct{}
	keywords   []string
}

// NewRegistry watches for the given plugin keywords (DefaultPluginKeywords if empty).
func NewRegistry(keywords []string) *Registry {
	if len(keywords) == 0 {
		keywords = DefaultPluginKeywords
	}
	return &Registry{
		commandSet: make(map[string]struct{}),
		pluginSet:  make(map[string]struct{}),
		keywords:   append([]string(nil), keywords...),
	}
}

// Findings is what one chat line contributed.
type Findings struct {
	Commands []string
	Plugins  []string
}

// Empty reports whether nothing new was found.
func (f Findings) Empty() bool { return len(f.Commands) == 0 && len(f.Plugins) == 0 }

// Observe scans a chat line and records anything new.
func (r *Registry) Observe(line string) Findings {
	var out Findings
	for _, cmd := range commandPattern.FindAllString(line, -1) {
		if r.AddCommand(cmd) {
			out.Commands = append(out.Commands, cmd)
		}
	}
	lower := strings.ToLower(line)
	for _, kw := range r.keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			continue
		}
		if _, ok := r.pluginSet[kw]; ok {
			continue
		}
		r.pluginSet[kw] = struct{}{}
		r.plugins = append(r.plugins, kw)
		out.Plugins = append(out.Plugins, kw)
	}
	return out
}

// AddCommand records cmd, returning false if it was already known.
func (r *Registry) AddCommand(cmd string) bool {
	if _, ok := r.commandSet[cmd]; ok {
		return false
	}
	r.commandSet[cmd] = struct{}{}
	r.commands = append(r.commands, cmd)
	return true
}

// Commands returns the most recent MaxSurfacedCommands commands in arrival order.
func (r *Registry) Commands() []string {
	start := 0
	if len(r.commands) > MaxSurfacedCommands {
		start = len(r.commands) - MaxSurfacedCommands
	}
	return append([]string(nil), r.commands[start:]...)
}

// CommandCount is the total number of distinct commands discovered.
func (r *Registry) CommandCount() int { return len(r.commands) }

// Plugins returns every detected plugin keyword in detection order.
func (r *Registry) Plugins() []string {
	return append([]string(nil), r.plugins...)
}
