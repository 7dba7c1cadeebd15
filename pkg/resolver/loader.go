package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const logPrefix = "resolver:loader"

// SupportedTableVersions is the range of method table versions this build
// understands.
const SupportedTableVersions = "^1.0.0"

var defaultTablePaths = []string{"config/methods.yaml", "config/methods.json"}

// LoadMethodTable loads the first method table found. Explicit paths are tried
// before the default locations; missing files are skipped, but a file that
// exists and fails to parse or validate is an error. With no file found the
// embedded default table is returned.
func LoadMethodTable(paths ...string) (*MethodTable, error) {
	all := make([]string, 0, len(paths)+len(defaultTablePaths))
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	all = append(all, defaultTablePaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, p, err)
		}

		table, err := ParseMethodTable(data, filepath.Ext(p))
		if err != nil {
			return nil, fmt.Errorf("%s - %s: %w", logPrefix, p, err)
		}

		slog.Info(fmt.Sprintf("%s - Loaded method table %s (version %s, %d methods) from %s", logPrefix, table.Name, table.Version, len(table.Methods), p))
		return table, nil
	}

	slog.Info(fmt.Sprintf("%s - Using default method table", logPrefix))
	return DefaultMethodTable(), nil
}

// ParseMethodTable decodes and validates a method table. ext selects the
// format: ".yaml" and ".yml" are YAML, anything else JSON.
func ParseMethodTable(data []byte, ext string) (*MethodTable, error) {
	var table MethodTable
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// Validate checks the table version and every entry.
func (t *MethodTable) Validate() error {
	v, err := semver.NewVersion(t.Version)
	if err != nil {
		return fmt.Errorf("invalid table version %q: %w", t.Version, err)
	}
	constraint, err := semver.NewConstraint(SupportedTableVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("table version %s does not satisfy %s", v, SupportedTableVersions)
	}

	seen := make(map[string]struct{}, len(t.Methods))
	for i, m := range t.Methods {
		name := strings.ToLower(strings.TrimSpace(m.Method))
		if name == "" {
			return fmt.Errorf("methods[%d]: method is required", i)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("methods[%d]: duplicate method %s", i, m.Method)
		}
		seen[name] = struct{}{}

		switch m.Kind {
		case KindEvent, KindPassthrough:
		case KindProvider:
			if m.Capability == "" {
				return fmt.Errorf("methods[%d]: provider method %s has no capability", i, m.Method)
			}
			switch m.Op {
			case OpRegister, OpInvoke, OpResponse, OpError:
			default:
				return fmt.Errorf("methods[%d]: provider method %s has invalid op %q", i, m.Method, m.Op)
			}
		default:
			return fmt.Errorf("methods[%d]: invalid kind %q", i, m.Kind)
		}
	}
	return nil
}

// DefaultMethodTable returns the embedded fallback table.
func DefaultMethodTable() *MethodTable {
	return &MethodTable{
		Name:    "app2app-default",
		Version: "1.0.0",
		Methods: []MethodEntry{
			{Method: "player.onRequestPlay", Kind: KindProvider, Capability: "play", Op: OpRegister},
			{Method: "player.play", Kind: KindProvider, Capability: "play", Op: OpInvoke},
			{Method: "player.playResponse", Kind: KindProvider, Capability: "play", Op: OpResponse},
			{Method: "player.playError", Kind: KindProvider, Capability: "play", Op: OpError},
			{Method: "keyboard.onRequestStandard", Kind: KindProvider, Capability: "keyboard.standard", Op: OpRegister},
			{Method: "keyboard.standard", Kind: KindProvider, Capability: "keyboard.standard", Op: OpInvoke},
			{Method: "keyboard.standardResponse", Kind: KindProvider, Capability: "keyboard.standard", Op: OpResponse},
			{Method: "keyboard.standardError", Kind: KindProvider, Capability: "keyboard.standard", Op: OpError},
			{Method: "lifecycle.onInactive", Kind: KindEvent},
			{Method: "lifecycle.onForeground", Kind: KindEvent},
			{Method: "device.name", Kind: KindPassthrough},
			{Method: "localization.language", Kind: KindPassthrough},
		},
	}
}
