package guides

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
)

// ChainReader reads from the external chain service.
type ChainReader interface {
	BlockNumber(ctx context.Context) (int64, error)
}

// IntentionRelay creates and relays blockchain intentions through the
// bundler service.
type IntentionRelay interface {
	CreateIntention(ctx context.Context, action string) (json.RawMessage, error)
	SendSigned(ctx context.Context, intention json.RawMessage, signature, from string) (json.RawMessage, error)
}

// RegisterBuiltins wires the built-in guides into the registry. The chain
// and relay collaborators may be nil when the corresponding services are not
// configured; their guides then report the missing dependency.
func RegisterBuiltins(r *Registry, chain ChainReader, relay IntentionRelay) {
	r.MustRegister("callGuide", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		name, _ := args["name"].(string)
		prompt, _ := args["prompt"].(string)
		return callSubGuide(name, prompt), nil
	})

	r.MustRegister("getBlockNumber", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if chain == nil {
			return nil, fmt.Errorf("chain service not configured")
		}
		return chain.BlockNumber(ctx)
	})

	r.MustRegister("createIntention", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if relay == nil {
			return nil, fmt.Errorf("bundler service not configured")
		}
		action, _ := args["action"].(string)
		if action == "" {
			return nil, fmt.Errorf("action is required")
		}
		return relay.CreateIntention(ctx, action)
	})

	r.MustRegister("sendIntention", func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		if relay == nil {
			return nil, fmt.Errorf("bundler service not configured")
		}
		signature, _ := args["signature"].(string)
		from, _ := args["from"].(string)
		intention, err := json.Marshal(args["intention"])
		if err != nil {
			return nil, fmt.Errorf("failed to serialize intention: %w", err)
		}
		return relay.SendSigned(ctx, intention, signature, from)
	})
}

// subGuides maps sub-guide names to canned knowledge. Specialized guides are
// addressed by name through the callGuide function rather than each getting
// a top-level tool declaration.
var subGuides = map[string]string{
	"secret-word-example":   "The secret word is 'cat'.",
	"secret-number-example": "The secret number is 34.",
}

func callSubGuide(name, prompt string) string {
	names := make([]string, 0, len(subGuides))
	for n := range subGuides {
		names = append(names, n)
	}
	sort.Strings(names)
	log.Printf("calling guide %q with prompt %q (available: %v)", name, prompt, names)

	if answer, ok := subGuides[name]; ok {
		return answer
	}
	return "Wrong name."
}
