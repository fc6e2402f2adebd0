package options

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"aggregate-mapper/primitive"
	"aggregate-mapper/utils"
)

const DefaultBatchSize = 100

// Settings parameterizes a single Execute call.
type Settings struct {
	// Action is the requested operation.
	Action Action `yaml:"action"`
	// BatchSize bounds bulk writes and migration batches.
	BatchSize int `yaml:"batch_size"`
	// Offset and Limit paginate source scans (Limit 0 = unbounded).
	Offset int `yaml:"offset"`
	Limit  int `yaml:"limit"`
	// Merge selects additive collection semantics: obsolete elements are kept.
	Merge bool `yaml:"merge"`
	// Tags enable tagged hooks.
	Tags []string `yaml:"tags"`
	// Params are named parameters for query binding and hooks.
	Params map[string]any `yaml:"params"`
	// Associations lists "Type.property" paths to traverse in addition to cascaded ones.
	Associations []string `yaml:"associations"`
	// PostLogic enables the POSTLOGIC stage.
	PostLogic bool `yaml:"post_logic"`
	// StrictDuplicates turns a discarded natural-key duplicate into an AmbiguousMatch error.
	StrictDuplicates bool `yaml:"strict_duplicates"`
	// StrictKeys rejects record keys that resolve to no property.
	StrictKeys bool `yaml:"strict_keys"`
	// Conversions lists the allowed scalar conversion categories.
	Conversions primitive.CategoryEnum `yaml:"-"`
	// AllowUnsafeNumbers adds CategoryUnsafeNumber to Conversions when loading from YAML.
	AllowUnsafeNumbers bool `yaml:"allow_unsafe_numbers"`
}

// Default returns settings for the given action.
func Default(action Action) Settings {
	return Settings{
		Action:      action,
		BatchSize:   DefaultBatchSize,
		Conversions: primitive.CategoryDefault,
	}
}

// Validate checks the settings for consistency.
func (s *Settings) Validate() error {
	var errs []error
	if s.Action == ActionUnknown {
		errs = append(errs, errors.New("action is required"))
	}

	if s.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", s.BatchSize))
	}

	if s.Offset < 0 || s.Limit < 0 {
		errs = append(errs, fmt.Errorf("offset and limit must not be negative, got %d/%d", s.Offset, s.Limit))
	}

	for _, path := range s.Associations {
		if typ, prop := utils.Unpack2(strings.SplitN(path, ".", 2)); typ == "" || prop == "" {
			errs = append(errs, fmt.Errorf("association %q must be in Type.property form", path))
		}
	}

	return errors.Join(errs...)
}

// Requested reports whether "Type.property" was explicitly requested.
func (s *Settings) Requested(typeName, property string) bool {
	return slices.Contains(s.Associations, typeName+"."+property)
}

// HasTag reports whether tag is enabled. The empty tag is always enabled.
func (s *Settings) HasTag(tag string) bool {
	return tag == "" || slices.Contains(s.Tags, tag)
}

// Window reports whether the n-th (zero based) scanned item falls into the Offset/Limit page.
func (s *Settings) Window(n int) (in, done bool) {
	if n < s.Offset {
		return false, false
	}

	if s.Limit > 0 && n >= s.Offset+s.Limit {
		return false, true
	}

	return true, false
}

// LoadSettings reads settings from a YAML file and fills in defaults.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	return ParseSettings(data)
}

// ParseSettings parses YAML settings.
func ParseSettings(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	if s.BatchSize == 0 {
		s.BatchSize = DefaultBatchSize
	}

	s.Conversions = primitive.CategoryDefault
	if s.AllowUnsafeNumbers {
		s.Conversions |= primitive.CategoryUnsafeNumber
	}

	return s, s.Validate()
}
