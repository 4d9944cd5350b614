package zabbix

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"problems-service/internal/logging"
)

// ErrUnknownScript is returned when a named capability was not resolved
// against the backend's script list. This is a configuration problem, not
// a silent no-op.
var ErrUnknownScript = errors.New("script not resolved on the backend")

// ScriptRegistry is the injected capability map from configured script
// names ("Create Ticket", "Send Email", ...) to backend script ids. It is
// resolved once per session and can be refreshed.
type ScriptRegistry struct {
	names  []string
	logger *logging.Logger

	mu     sync.RWMutex
	byName map[string]string
}

// NewScriptRegistry builds an unresolved registry for the given names.
func NewScriptRegistry(names []string, logger *logging.Logger) *ScriptRegistry {
	return &ScriptRegistry{
		names:  names,
		logger: logger,
		byName: map[string]string{},
	}
}

// Resolve fetches the backend script list and rebuilds the name map.
// Missing names are returned so the caller can surface a configuration
// warning; they do not fail the resolution.
func (r *ScriptRegistry) Resolve(ctx context.Context, client *Client) ([]string, error) {
	scripts, err := client.GetScripts(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve scripts: %w", err)
	}

	byName := make(map[string]string, len(r.names))
	for _, name := range r.names {
		for _, script := range scripts {
			if script.Name == name {
				byName[name] = script.ScriptID
				break
			}
		}
	}

	var missing []string
	for _, name := range r.names {
		if _, ok := byName[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		r.logger.Warnf("Scripts not found on backend: %v", missing)
	}

	r.mu.Lock()
	r.byName = byName
	r.mu.Unlock()

	r.logger.Infof("Resolved %d/%d backend scripts", len(byName), len(r.names))
	return missing, nil
}

// Lookup returns the script id for a configured name.
func (r *ScriptRegistry) Lookup(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScript, name)
	}
	return id, nil
}

// Snapshot returns a copy of the resolved name map.
func (r *ScriptRegistry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.byName))
	for name, id := range r.byName {
		out[name] = id
	}
	return out
}
