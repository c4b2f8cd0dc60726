// Package profiles implements the indexer's normalization profiles: small,
// independent raw-string-to-document transforms dispatched by name from a
// static registry.
package profiles

import "fmt"

// Profile normalizes one raw line into a document.
type Profile interface {
	Normalize(raw string) (map[string]any, error)
}

var registry = map[string]Profile{
	"passthrough": passthrough{},
	"json_auto":   jsonAuto{},
	"kv_pairs":    kvPairs{},
}

// Lookup returns the named profile, or an error if name isn't registered —
// the caller translates that into the indexer's 400 response.
func Lookup(name string) (Profile, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown profile: %s", name)
	}
	return p, nil
}
