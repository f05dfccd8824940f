package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/nog/internal/paths"
)

// Source locates a key in a settings file.
type Source struct {
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // top-level key -> position in the file
	File    string            // empty when defaults were used
}

// DefaultPath returns the standard location of daemon.yaml.
func DefaultPath() (string, error) {
	return paths.SettingsFile()
}

// Load reads daemon.yaml from the standard location.
func Load() (*LoadResult, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads settings from path. A missing file yields the defaults.
func LoadFromPath(path string) (*LoadResult, error) {
	cfg := DefaultConfig()

	exists, err := pathExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return &LoadResult{Config: cfg, Sources: map[string]Source{}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}
	if err := decodeStrictYAML(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	sources := collectSources(&doc, path)

	if cfg.ConfigPath != "" {
		resolved, err := resolvePathRelativeToFile(path, cfg.ConfigPath)
		if err != nil {
			return nil, attachSourceContext(&ValidationError{Path: "config_path", Err: err}, sources)
		}
		cfg.ConfigPath = resolved
	}

	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}

	return &LoadResult{Config: cfg, Sources: sources, File: path}, nil
}

// ScriptPath returns the configured script location, or the default one.
func (c *Config) ScriptPath() (string, error) {
	if c != nil && c.ConfigPath != "" {
		return c.ConfigPath, nil
	}
	return paths.ConfigFile()
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		out[key.Value] = Source{File: file, Line: key.Line, Column: key.Column}
	}
	return out
}

func resolvePathRelativeToFile(baseFile string, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) {
		return path, nil
	}
	return filepath.Join(filepath.Dir(baseFile), path), nil
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
