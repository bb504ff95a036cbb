package pagination

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
)

// StringList decodes from either a single string or a list of strings, the
// two shapes pagination model files use for token and key fields.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = many
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*l = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := value.Decode(&many); err != nil {
			return err
		}
		*l = many
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", value.Line)
	}
}

// Definition is the loosely typed pagination entry of one operation as it
// appears in a model file.
type Definition struct {
	InputToken       StringList `json:"input_token" yaml:"input_token"`
	OutputToken      StringList `json:"output_token" yaml:"output_token"`
	LimitKey         string     `json:"limit_key,omitempty" yaml:"limit_key,omitempty"`
	ResultKey        StringList `json:"result_key" yaml:"result_key"`
	MoreResults      string     `json:"more_results,omitempty" yaml:"more_results,omitempty"`
	NonAggregateKeys StringList `json:"non_aggregate_keys,omitempty" yaml:"non_aggregate_keys,omitempty"`
}

// Config is the validated, compiled pagination description of one operation.
// It is immutable once built and may be shared between paginators.
type Config struct {
	// InputToken names the request parameters markers are sent under.
	InputToken []string
	// OutputToken extracts markers from a response, paired by position with InputToken.
	OutputToken []*pathexpr.Expression
	// ResultKey locates the paged collections; the first one is the primary key
	// that MaxItems counts against.
	ResultKey []*pathexpr.Expression
	// LimitKey names the request parameter PageSize is sent under.
	LimitKey string
	// MoreResults optionally locates a boolean continuation flag.
	MoreResults *pathexpr.Expression
	// NonAggregateKeys are copied verbatim from the first page.
	NonAggregateKeys []*pathexpr.Expression
}

// NewConfig validates def and compiles its expressions.
func NewConfig(def Definition) (*Config, error) {
	if len(def.InputToken) == 0 {
		return nil, fmt.Errorf("%w: at least one input_token is required", ErrInvalidConfig)
	}
	if len(def.InputToken) != len(def.OutputToken) {
		return nil, fmt.Errorf("%w: %d input tokens but %d output tokens",
			ErrInvalidConfig, len(def.InputToken), len(def.OutputToken))
	}
	if len(def.ResultKey) == 0 {
		return nil, fmt.Errorf("%w: at least one result_key is required", ErrInvalidConfig)
	}

	cfg := &Config{
		InputToken: append([]string(nil), def.InputToken...),
		LimitKey:   def.LimitKey,
	}

	var err error
	if cfg.OutputToken, err = compileAll("output_token", def.OutputToken, false); err != nil {
		return nil, err
	}
	if cfg.ResultKey, err = compileAll("result_key", def.ResultKey, true); err != nil {
		return nil, err
	}
	if cfg.NonAggregateKeys, err = compileAll("non_aggregate_keys", def.NonAggregateKeys, true); err != nil {
		return nil, err
	}
	if def.MoreResults != "" {
		if cfg.MoreResults, err = pathexpr.Compile(def.MoreResults); err != nil {
			return nil, fmt.Errorf("%w: more_results: %w", ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

// MustConfig is like NewConfig but panics on error.
func MustConfig(def Definition) *Config {
	cfg, err := NewConfig(def)
	if err != nil {
		panic(err)
	}
	return cfg
}

func compileAll(field string, exprs []string, settable bool) ([]*pathexpr.Expression, error) {
	compiled := make([]*pathexpr.Expression, 0, len(exprs))
	for _, text := range exprs {
		e, err := pathexpr.Compile(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, field, err)
		}
		if settable && !e.IsSettable() {
			return nil, fmt.Errorf("%w: %s %q must be a dotted path", ErrInvalidConfig, field, text)
		}
		compiled = append(compiled, e)
	}
	return compiled, nil
}

// PrimaryResultKey returns the result key MaxItems is counted against.
func (c *Config) PrimaryResultKey() *pathexpr.Expression {
	return c.ResultKey[0]
}

// ResultKeyNames returns the source text of every result key.
func (c *Config) ResultKeyNames() []string {
	names := make([]string, len(c.ResultKey))
	for i, key := range c.ResultKey {
		names[i] = key.String()
	}
	return names
}
