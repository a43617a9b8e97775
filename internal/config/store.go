package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nzmon/nzmon/internal/errors"
	"gopkg.in/yaml.v3"
)

// Store persists settings after they change.
type Store interface {
	Save(Settings) error
}

// StoreFunc adapts a function to the Store interface.
type StoreFunc func(Settings) error

// Save calls f(s).
func (f StoreFunc) Save(s Settings) error { return f(s) }

// NopStore discards settings. Used when nothing should be written.
var NopStore Store = StoreFunc(func(Settings) error { return nil })

// YAMLStore writes settings into a YAML config file, leaving every other key
// (and its comments) untouched.
type YAMLStore struct {
	Path string
}

// Save implements Store.
func (y YAMLStore) Save(s Settings) error {
	return SaveSettings(y.Path, s)
}

// LegacyStore writes settings in the legacy plain-text format.
type LegacyStore struct {
	Path string
}

// Save implements Store.
func (l LegacyStore) Save(s Settings) error {
	return SaveLegacy(l.Path, s)
}

// StoreFor picks where settings changes should go for a loaded config.
// A legacy path wins; otherwise the YAML file that was loaded, or the
// default location when nothing was loaded yet.
func StoreFor(cfg *Config, loadedPath string) Store {
	if cfg != nil && cfg.LegacyPath != "" {
		return LegacyStore{Path: cfg.LegacyPath}
	}
	if loadedPath != "" {
		return YAMLStore{Path: loadedPath}
	}
	if def := DefaultPath(); def != "" {
		return YAMLStore{Path: def}
	}
	return NopStore
}

// SaveSettings updates the settings keys in the YAML file at path. The file
// is created if it does not exist yet.
func SaveSettings(path string, s Settings) error {
	var root yaml.Node

	data, err := os.ReadFile(path)
	switch {
	case err == nil && len(bytes.TrimSpace(data)) > 0:
		if err := yaml.Unmarshal(data, &root); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to parse config file", "Check the YAML syntax in "+path)
		}
	case err == nil || os.IsNotExist(err):
		root = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	default:
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file", "Check file permissions")
	}

	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return errors.New(errors.ErrConfig,
			"Config file is not a YAML mapping",
			"Fix or remove "+path)
	}
	doc := root.Content[0]

	if findMapValue(doc, "version") == nil {
		setMapValue(doc, "version", scalar("!!int", strconv.Itoa(CurrentConfigVersion)))
	}
	setMapValue(doc, "server_url", scalar("!!str", s.ServerURL))
	setMapValue(doc, "username", scalar("!!str", s.Username))
	setMapValue(doc, "password", scalar("!!str", s.Password))

	ids := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, id := range s.ServerIDs {
		ids.Content = append(ids.Content, scalar("!!int", strconv.Itoa(id)))
	}
	setMapValue(doc, "server_ids", ids)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_ = encoder.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot create config directory", "Check directory permissions")
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write config file", "Check file permissions for "+path)
	}
	return nil
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// findMapValue finds a value in a mapping node by key name.
func findMapValue(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// setMapValue replaces the value for key, or appends the pair.
func setMapValue(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(node.Content)-1; i += 2 {
		if k := node.Content[i]; k.Kind == yaml.ScalarNode && k.Value == key {
			value.HeadComment = node.Content[i+1].HeadComment
			value.LineComment = node.Content[i+1].LineComment
			node.Content[i+1] = value
			return
		}
	}
	node.Content = append(node.Content, scalar("!!str", key), value)
}
