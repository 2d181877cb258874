package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetYamlConfig writes key to <state>/config.yaml, creating the file if
// needed. Dotted keys become nested mappings; other keys and comments are
// kept.
func SetYamlConfig(key, value string) error {
	if !IsKnownKey(key) || key == KeyStateDir {
		return fmt.Errorf("unknown config key %q", key)
	}
	path := ConfigPath()
	data, err := os.ReadFile(path) // #nosec G304 - config file path from state dir
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read config.yaml: %w", err)
	}

	out, err := updateYamlKey(data, key, value)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("failed to write config.yaml: %w", err)
	}

	if v != nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		_ = v.ReadInConfig() // on disk either way; picked up next run
	}
	return nil
}

// GetYamlConfig returns key as written in config.yaml, or "".
func GetYamlConfig(key string) string {
	data, err := os.ReadFile(ConfigPath()) // #nosec G304 - config file path from state dir
	if err != nil {
		return ""
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil || len(root.Content) == 0 {
		return ""
	}
	node := root.Content[0]
	for _, part := range strings.Split(key, ".") {
		node = lookup(node, part)
		if node == nil {
			return ""
		}
	}
	if node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

func updateYamlKey(content []byte, key, value string) ([]byte, error) {
	var root yaml.Node
	if len(content) > 0 {
		if err := yaml.Unmarshal(content, &root); err != nil {
			return nil, fmt.Errorf("failed to parse config.yaml: %w", err)
		}
	}
	// Empty or comment-only files have no document mapping yet
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		root = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	if root.Content[0].Kind != yaml.MappingNode {
		root.Content[0] = &yaml.Node{Kind: yaml.MappingNode}
	}

	node := root.Content[0]
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		child := lookup(node, part)
		if child == nil || child.Kind != yaml.MappingNode {
			child = &yaml.Node{Kind: yaml.MappingNode}
			setChild(node, part, child)
		}
		node = child
	}
	setChild(node, parts[len(parts)-1], scalarNode(value))

	var buf strings.Builder
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode config.yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to close encoder: %w", err)
	}
	return []byte(buf.String()), nil
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	if mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func setChild(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

// scalarNode tags booleans and numbers so they round-trip unquoted.
func scalarNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: "!!str"}
	lower := strings.ToLower(value)
	switch {
	case lower == "true" || lower == "false":
		n.Tag, n.Value = "!!bool", lower
	case isNumeric(value) && !strings.Contains(value, "."):
		n.Tag = "!!int"
	case isNumeric(value):
		n.Tag = "!!float"
	}
	return n
}

func isNumeric(s string) bool {
	if s == "" || s == "-" {
		return false
	}
	dots := 0
	for i, c := range s {
		switch {
		case c == '-' && i == 0:
		case c == '.':
			dots++
		case c < '0' || c > '9':
			return false
		}
	}
	return dots <= 1
}
