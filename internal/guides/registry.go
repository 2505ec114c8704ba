// Package guides implements the tool registry: named side-effect functions
// the model may invoke mid-run. Each guide pairs an executable Go
// implementation with a declarative JSON-schema definition file of the same
// base name; only guides with both halves are loadable.
package guides

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sensei-labs/sensei/internal/domain"
)

// SentinelOutput is substituted for the output of a guide the registry does
// not know. Tool calls never block a run indefinitely on a missing guide;
// the model is expected to interpret the sentinel and recover conversationally.
const SentinelOutput = "We had an issue calling an external function."

// ErrGuideNotFound is returned when no guide matches the requested name.
var ErrGuideNotFound = fmt.Errorf("guide not found")

// InvokerFunc executes a guide with named arguments in declaration order.
type InvokerFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Registry stores guide invokers keyed by guide name, alongside the
// declarations advertised to the remote assistant.
type Registry struct {
	mu           sync.RWMutex
	invokers     map[string]InvokerFunc
	declarations map[string]domain.GuideDeclaration
	loaded       []domain.GuideDeclaration
}

// NewRegistry creates an empty guide registry.
func NewRegistry() *Registry {
	return &Registry{
		invokers:     make(map[string]InvokerFunc),
		declarations: make(map[string]domain.GuideDeclaration),
	}
}

// Register adds an invoker for a guide name.
func (r *Registry) Register(name string, fn InvokerFunc) error {
	if name == "" {
		return fmt.Errorf("guide name is required")
	}
	if fn == nil {
		return fmt.Errorf("invoker is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.invokers[name]; exists {
		return fmt.Errorf("invoker already registered for %s", name)
	}
	r.invokers[name] = fn
	return nil
}

// MustRegister adds an invoker or panics.
func (r *Registry) MustRegister(name string, fn InvokerFunc) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Load reads every *.json declaration in dir and pairs it with a registered
// invoker of the matching base name. Declarations without an implementation
// are skipped with an error only on malformed files, so a stray definition
// cannot take the registry down.
func (r *Registry) Load(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read guides dir: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = nil
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		if _, ok := r.invokers[name]; !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read guide definition %s: %w", entry.Name(), err)
		}
		var decl domain.GuideDeclaration
		if err := json.Unmarshal(data, &decl); err != nil {
			return fmt.Errorf("failed to parse guide definition %s: %w", entry.Name(), err)
		}
		if decl.Name == "" {
			decl.Name = name
		}
		r.declarations[name] = decl
		r.loaded = append(r.loaded, decl)
	}

	sort.Slice(r.loaded, func(i, j int) bool { return r.loaded[i].Name < r.loaded[j].Name })
	return nil
}

// Declarations returns the loaded declarations, sorted by name. The slice is
// passed verbatim to remote assistant creation.
func (r *Registry) Declarations() []domain.GuideDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.GuideDeclaration, len(r.loaded))
	copy(out, r.loaded)
	return out
}

// Catalog returns a name-to-description map of the loaded guides, used to
// build the compiled instructions string.
func (r *Registry) Catalog() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	catalog := make(map[string]string, len(r.loaded))
	for _, decl := range r.loaded {
		catalog[decl.Name] = decl.Description
	}
	return catalog
}

// Invoke runs the named guide with a JSON object of named arguments,
// validated against the declared schema, and returns the JSON-serialized
// result. Unknown guides return ErrGuideNotFound.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) (string, error) {
	r.mu.RLock()
	fn := r.invokers[name]
	decl, declared := r.declarations[name]
	r.mu.RUnlock()
	if fn == nil || !declared {
		return "", fmt.Errorf("%w: %s", ErrGuideNotFound, name)
	}

	args := map[string]interface{}{}
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return "", fmt.Errorf("failed to parse guide arguments: %w", err)
		}
	}
	if err := validateArgs(decl, args); err != nil {
		return "", err
	}

	result, err := fn(ctx, args)
	if err != nil {
		return "", fmt.Errorf("guide %s failed: %w", name, err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to serialize guide output: %w", err)
	}
	return string(out), nil
}

// validateArgs checks the named arguments against the declaration's
// parameter schema: every required property must be present.
func validateArgs(decl domain.GuideDeclaration, args map[string]interface{}) error {
	if len(decl.Parameters) == 0 {
		return nil
	}
	var schema struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(decl.Parameters, &schema); err != nil {
		return nil // unparseable schema does not block invocation
	}
	for _, key := range schema.Required {
		if _, ok := args[key]; !ok {
			return fmt.Errorf("missing required argument %q for guide %s", key, decl.Name)
		}
	}
	return nil
}
