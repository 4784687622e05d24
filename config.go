package iso8583

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

var messageTypePattern = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)

// Config describes a factory: default flags, parsing guides and templates.
// Message types are written as four hex digits, e.g. "0200".
type Config struct {
	Encoding             string           `mapstructure:"encoding"`
	BinaryFields         bool             `mapstructure:"binary_fields"`
	ForceSecondaryBitmap bool             `mapstructure:"force_secondary_bitmap"`
	HexLengthHeaders     bool             `mapstructure:"hex_length_headers"`
	Timezone             string           `mapstructure:"timezone"`
	Guides               []GuideConfig    `mapstructure:"guides"`
	Templates            []TemplateConfig `mapstructure:"templates"`
}

type GuideConfig struct {
	Type   string        `mapstructure:"type"`
	Fields []FieldConfig `mapstructure:"fields"`
}

type TemplateConfig struct {
	Type   string        `mapstructure:"type"`
	Fields []FieldConfig `mapstructure:"fields"`
}

// FieldConfig declares a guide field or, with Value set, a template field.
type FieldConfig struct {
	Index    int       `mapstructure:"index"`
	Type     FieldType `mapstructure:"type"`
	Length   int       `mapstructure:"length"`
	Timezone string    `mapstructure:"timezone"`
	Value    string    `mapstructure:"value"`
}

// LoadConfigYAML decodes a YAML factory description.
func LoadConfigYAML(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	return decodeConfig(raw)
}

// LoadConfigJSON decodes a JSON factory description.
func LoadConfigJSON(data []byte) (*Config, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	return decodeConfig(raw)
}

// LoadConfigFile reads a JSON file when the name ends in .json, YAML
// otherwise.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfig, "reading %s: %v", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadConfigJSON(data)
	}
	return LoadConfigYAML(data)
}

func decodeConfig(raw map[string]interface{}) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       fieldTypeHook,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(ErrConfig, err.Error())
	}
	return &cfg, nil
}

// fieldTypeHook lets configs name field types, e.g. "LLVAR".
var fieldTypeHook mapstructure.DecodeHookFuncType = func(from, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(FieldType(0)) || from.Kind() != reflect.String {
		return data, nil
	}
	return ParseFieldType(data.(string))
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Encoding, validation.By(validEncoding)),
		validation.Field(&c.Timezone, validation.By(validTimezone)),
		validation.Field(&c.Guides),
		validation.Field(&c.Templates),
	)
	if err != nil {
		return errors.Wrap(ErrInvalidGuide, err.Error())
	}
	return nil
}

func (g GuideConfig) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Type, validation.Required, validation.Match(messageTypePattern)),
		validation.Field(&g.Fields, validation.Required),
	)
}

func (t TemplateConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Type, validation.Required, validation.Match(messageTypePattern)),
		validation.Field(&t.Fields, validation.Required, validation.Each(validation.By(hasValue))),
	)
}

func (f FieldConfig) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Index, validation.Required, validation.Min(MinFieldNumber), validation.Max(MaxFieldNumber)),
		validation.Field(&f.Type, validation.Required, validation.By(validFieldType)),
		validation.Field(&f.Length, validation.When(f.Type.NeedsLength(), validation.Required), validation.Min(0)),
		validation.Field(&f.Timezone, validation.By(validTimezone)),
	)
}

func validEncoding(value interface{}) error {
	_, err := lookupCharset(value.(string))
	return err
}

func validTimezone(value interface{}) error {
	_, err := loadLocation(value.(string))
	return err
}

func validFieldType(value interface{}) error {
	if t, _ := value.(FieldType); !t.Valid() {
		return errors.New("unknown field type")
	}
	return nil
}

func hasValue(value interface{}) error {
	if f, _ := value.(FieldConfig); f.Value == "" {
		return errors.Errorf("template field %d needs a value", f.Index)
	}
	return nil
}

// loadLocation returns nil for an empty name.
func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, nil
	}
	return time.LoadLocation(name)
}

func parseMessageType(s string) (int, error) {
	typ, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidGuide, "message type %q", s)
	}
	return int(typ), nil
}

// Options converts the flags of c into factory options.
func (c *Config) Options() ([]FactoryOption, error) {
	opts := []FactoryOption{
		WithBinaryFields(c.BinaryFields),
		WithForceSecondaryBitmap(c.ForceSecondaryBitmap),
		WithHexLengthHeaders(c.HexLengthHeaders),
	}
	if c.Encoding != "" {
		opts = append(opts, WithCharacterEncoding(c.Encoding))
	}
	loc, err := loadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidGuide, err.Error())
	}
	if loc != nil {
		opts = append(opts, WithTimezone(loc))
	}
	return opts, nil
}

// NewFactoryFromConfig validates cfg and freezes a factory from it. opts are
// applied after the config flags and can override them.
func NewFactoryFromConfig(cfg *Config, opts ...FactoryOption) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfgOpts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	b := NewFactoryBuilder(append(cfgOpts, opts...)...)

	for _, g := range cfg.Guides {
		typ, err := parseMessageType(g.Type)
		if err != nil {
			return nil, err
		}
		spec := make(GuideSpec, len(g.Fields))
		for _, f := range g.Fields {
			loc, _ := loadLocation(f.Timezone)
			spec[f.Index] = FieldSpec{Type: f.Type, Length: f.Length, Timezone: loc}
		}
		if err := b.RegisterParsingGuide(typ, spec); err != nil {
			return nil, err
		}
	}

	for _, t := range cfg.Templates {
		typ, err := parseMessageType(t.Type)
		if err != nil {
			return nil, err
		}
		tmpl := NewMessage(typ)
		for _, f := range t.Fields {
			loc, _ := loadLocation(f.Timezone)
			v, err := FieldValueFromText(f.Type, f.Value, f.Length, loc)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidGuide, "template %s field %d: %v", t.Type, f.Index, err)
			}
			if loc != nil {
				v = v.WithTimezone(loc)
			}
			if err := tmpl.SetField(f.Index, v); err != nil {
				return nil, errors.Wrapf(ErrInvalidGuide, "template %s: %v", t.Type, err)
			}
		}
		if err := b.RegisterTemplate(tmpl); err != nil {
			return nil, err
		}
	}
	return b.Freeze()
}
