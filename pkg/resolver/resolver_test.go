package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

const resolverTestPrefix = "resolver:resolver_test"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("%s - write %s: %v", resolverTestPrefix, name, err)
	}
	return p
}

func mustResolver(t *testing.T, table *MethodTable) *Resolver {
	t.Helper()
	r, err := New(table)
	if err != nil {
		t.Fatalf("%s - New failed: %v", resolverTestPrefix, err)
	}
	return r
}

func TestDefaultMethodTable_Valid(t *testing.T) {
	table := DefaultMethodTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("%s - default table invalid: %v", resolverTestPrefix, err)
	}

	r := mustResolver(t, table)
	if r.Len() != len(table.Methods) {
		t.Errorf("%s - Len = %d, want %d", resolverTestPrefix, r.Len(), len(table.Methods))
	}
	if r.Version() != "1.0.0" {
		t.Errorf("%s - Version = %s, want 1.0.0", resolverTestPrefix, r.Version())
	}
}

func TestClassify(t *testing.T) {
	r := mustResolver(t, DefaultMethodTable())

	res, ok := r.Classify("Player.Play")
	if !ok || !res.IsProvider() || res.Capability != "play" || res.Op != OpInvoke {
		t.Errorf("%s - Player.Play classified as %+v (ok=%v)", resolverTestPrefix, res, ok)
	}

	res, ok = r.Classify("player.onRequestPlay")
	if !ok || res.Op != OpRegister {
		t.Errorf("%s - player.onRequestPlay classified as %+v (ok=%v)", resolverTestPrefix, res, ok)
	}

	res, ok = r.Classify("lifecycle.onInactive")
	if !ok || res.Kind != KindEvent || res.IsProvider() {
		t.Errorf("%s - lifecycle.onInactive classified as %+v (ok=%v)", resolverTestPrefix, res, ok)
	}

	if _, ok = r.Classify("nope.nothing"); ok {
		t.Errorf("%s - unknown method should not classify", resolverTestPrefix)
	}
}

func TestLoadMethodTable_JSON(t *testing.T) {
	p := writeFile(t, "methods.json", `{
		"name": "custom",
		"version": "1.4.2",
		"methods": [
			{"method": "Shop.onRequestBuy", "kind": "provider", "capability": "Buy", "op": "register"},
			{"method": "shop.buy", "kind": "provider", "capability": "buy", "op": "invoke"}
		]
	}`)

	table, err := LoadMethodTable(p)
	if err != nil {
		t.Fatalf("%s - LoadMethodTable: %v", resolverTestPrefix, err)
	}
	if table.Name != "custom" || len(table.Methods) != 2 {
		t.Fatalf("%s - unexpected table %+v", resolverTestPrefix, table)
	}

	res, ok := mustResolver(t, table).Classify("shop.onrequestbuy")
	if !ok || res.Capability != "buy" {
		t.Errorf("%s - shop.onrequestbuy classified as %+v (ok=%v)", resolverTestPrefix, res, ok)
	}
}

func TestLoadMethodTable_YAML(t *testing.T) {
	p := writeFile(t, "methods.yaml", `
name: yaml-table
version: 1.0.0
methods:
  - method: device.name
    kind: passthrough
  - method: player.onInactive
    kind: event
`)

	table, err := LoadMethodTable(p)
	if err != nil {
		t.Fatalf("%s - LoadMethodTable: %v", resolverTestPrefix, err)
	}
	if table.Name != "yaml-table" || len(table.Methods) != 2 {
		t.Errorf("%s - unexpected table %+v", resolverTestPrefix, table)
	}
}

func TestLoadMethodTable_FallsBackToDefault(t *testing.T) {
	table, err := LoadMethodTable(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("%s - LoadMethodTable: %v", resolverTestPrefix, err)
	}
	if table.Name != DefaultMethodTable().Name {
		t.Errorf("%s - fallback table = %s", resolverTestPrefix, table.Name)
	}
}

func TestLoadMethodTable_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unsupported major", "m.json", `{"version":"2.0.0","methods":[]}`},
		{"bad version", "m.json", `{"version":"one","methods":[]}`},
		{"bad json", "m.json", `{"version":`},
		{"bad yaml", "m.yaml", "version: [1"},
		{"unknown kind", "m.json", `{"version":"1.0.0","methods":[{"method":"a","kind":"other"}]}`},
		{"provider without capability", "m.json", `{"version":"1.0.0","methods":[{"method":"a","kind":"provider","op":"invoke"}]}`},
		{"provider bad op", "m.json", `{"version":"1.0.0","methods":[{"method":"a","kind":"provider","capability":"c","op":"call"}]}`},
		{"duplicate", "m.json", `{"version":"1.0.0","methods":[{"method":"a","kind":"event"},{"method":"A","kind":"event"}]}`},
		{"empty method", "m.json", `{"version":"1.0.0","methods":[{"method":" ","kind":"event"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadMethodTable(writeFile(t, tt.file, tt.content)); err == nil {
				t.Errorf("%s - expected an error for %s", resolverTestPrefix, tt.name)
			}
		})
	}
}

func TestNew_NilTable(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Errorf("%s - New(nil) should fail", resolverTestPrefix)
	}
}
