package mirrord

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/michaelbrown/podmirror/internal/cluster"
)

// ConfigErrorKind distinguishes config merge failures.
type ConfigErrorKind int

const (
	// InvalidJSON means the partial config could not be parsed.
	InvalidJSON ConfigErrorKind = iota
	// NotAnObject means the partial config parsed to something other than
	// a JSON object.
	NotAnObject
	// Serialize means the merged config could not be re-encoded.
	Serialize
)

// ConfigError reports a problem with the caller-supplied mirrord config.
type ConfigError struct {
	Kind ConfigErrorKind
	Err  error
}

func (e *ConfigError) Error() string {
	switch e.Kind {
	case InvalidJSON:
		return fmt.Sprintf("mirrord config is not valid JSON: %v", e.Err)
	case NotAnObject:
		return "mirrord config must be a JSON object"
	default:
		return fmt.Sprintf("serializing mirrord config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Merge binds the caller's partial mirrord config to the resolved target.
// The target key is always overwritten; every other top-level key passes
// through verbatim.
func Merge(partial []byte, target cluster.Target) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(partial, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ConfigError{Kind: NotAnObject, Err: err}
		}
		return nil, &ConfigError{Kind: InvalidJSON, Err: err}
	}
	if doc == nil {
		// "null" parses fine but is not an object.
		return nil, &ConfigError{Kind: NotAnObject}
	}

	doc["target"] = map[string]any{
		"namespace": target.Namespace,
		"path":      target.Path(),
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, &ConfigError{Kind: Serialize, Err: err}
	}
	return merged, nil
}
