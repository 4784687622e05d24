package iso8583

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testConfigYAML = `
encoding: UTF-8
force_secondary_bitmap: false
timezone: UTC
guides:
  - type: "0200"
    fields:
      - {index: 2, type: LLVAR}
      - {index: 3, type: NUMERIC, length: 6}
      - {index: 7, type: date10}
      - {index: 11, type: NUMERIC, length: 6}
  - type: "0210"
    fields:
      - {index: 3, type: NUMERIC, length: 6}
      - {index: 11, type: NUMERIC, length: 6}
      - {index: 39, type: ALPHA, length: 2}
templates:
  - type: "0210"
    fields:
      - {index: 39, type: ALPHA, length: 2, value: "00"}
`

func TestLoadConfigYAML(t *testing.T) {
	cfg, err := LoadConfigYAML([]byte(testConfigYAML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Encoding != "UTF-8" || cfg.Timezone != "UTC" || len(cfg.Guides) != 2 {
		t.Fatalf("decoded %+v", cfg)
	}
	if f := cfg.Guides[0].Fields[2]; f.Index != 7 || f.Type != Date10 {
		t.Errorf("field type names are not decoded: %+v", f)
	}

	f, err := NewFactoryFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if types := f.MessageTypes(); len(types) != 2 || types[1] != 0x0210 {
		t.Errorf("MessageTypes() = %v", types)
	}
	if f.CharacterEncoding() != "UTF-8" {
		t.Errorf("CharacterEncoding() = %s", f.CharacterEncoding())
	}

	req := f.NewMessage(0x0200)
	_ = req.SetValue(3, "000000", Numeric, 6)
	_ = req.SetValue(11, 7, Numeric, 6)
	resp := f.CreateResponse(req, true)
	wire, err := resp.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	got, err := f.ParseMessage(wire, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value(39) != "00" || got.Field(11).Render() != "000007" {
		t.Errorf("parsed response:\n%s", got.Describe())
	}
}

func TestLoadConfigJSON(t *testing.T) {
	data := []byte(`{
		"binary_fields": true,
		"hex_length_headers": "true",
		"guides": [{"type": "0800", "fields": [{"index": 70, "type": "NUMERIC", "length": 3}]}]
	}`)
	cfg, err := LoadConfigJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.BinaryFields || !cfg.HexLengthHeaders {
		t.Errorf("flags not decoded: %+v", cfg)
	}
	f, err := NewFactoryFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !f.BinaryFields() {
		t.Error("factory ignores binary_fields")
	}
	if g, ok := f.Guide(0x0800); !ok || !g.Has(70) {
		t.Error("guide 0800 not registered")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "iso8583.yaml")
	if err := os.WriteFile(path, []byte(testConfigYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFile(path); err != nil {
		t.Errorf("LoadConfigFile(%s) = %v", path, err)
	}
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.json")); !errors.Is(err, ErrConfig) {
		t.Errorf("missing file: %v", err)
	}
}

func TestConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "guides: [\n"},
		{"unknown key", "encodng: UTF-8\n"},
		{"unknown field type", `guides: [{type: "0200", fields: [{index: 3, type: NUMBER, length: 6}]}]`},
		{"index 1", `guides: [{type: "0200", fields: [{index: 1, type: LLVAR}]}]`},
		{"index 129", `guides: [{type: "0200", fields: [{index: 129, type: LLVAR}]}]`},
		{"numeric without length", `guides: [{type: "0200", fields: [{index: 3, type: NUMERIC}]}]`},
		{"bad message type", `guides: [{type: "02000", fields: [{index: 3, type: NUMERIC, length: 6}]}]`},
		{"guide without fields", `guides: [{type: "0200"}]`},
		{"unknown encoding", "encoding: KLINGON\n"},
		{"unknown timezone", "timezone: Mars/Olympus\n"},
		{"template without value", `templates: [{type: "0210", fields: [{index: 39, type: ALPHA, length: 2}]}]`},
		{"template value not numeric", `templates: [{type: "0210", fields: [{index: 39, type: NUMERIC, length: 2, value: "AB"}]}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfigYAML([]byte(tt.yaml))
			if err == nil {
				_, err = NewFactoryFromConfig(cfg)
			}
			if !errors.Is(err, ErrConfig) {
				t.Errorf("err = %v, want a configuration error", err)
			}
		})
	}
}
