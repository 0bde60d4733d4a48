package wire

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chazu/tagtree/tag"
)

// MarshalYAML renders t as YAML, one mapping per tag.
func MarshalYAML(t tag.Tag) ([]byte, error) {
	n, err := toNode(t, 0)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, fmt.Errorf("wire: marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wire: marshal yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML parses a tree written by MarshalYAML.
func UnmarshalYAML(data []byte) (tag.Tag, error) {
	var n node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: unmarshal yaml: %v", ErrCorruptData, err)
	}
	return fromNode(&n, 0)
}
