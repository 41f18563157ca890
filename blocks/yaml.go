package blocks

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a YAML block list into the JSON form Load accepts. Addresses must be
// quoted, as YAML reads short 0x literals as integers.
func FromYAML(data []byte) ([]byte, error) {
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}
	if raw == nil {
		raw = []map[string]any{}
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBlock, err)
	}

	return b, nil
}
