package filter

import (
	"context"
	"unicode"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/harmony/internal/domain/track"
)

// ScriptConfig represents the configuration for ScriptFilter.
// Scripts are Unicode script names such as "Malayalam" or "Tamil".
type ScriptConfig struct {
	Scripts []string `yaml:"scripts" mapstructure:"scripts" default:"[\"Malayalam\"]" validate:"dive,required"`
}

// ScriptFilter drops tracks whose title contains characters of a blocked script.
type ScriptFilter struct {
	tables []*unicode.RangeTable
}

// NewScriptFilter creates a filter blocking the given scripts.
func NewScriptFilter(scripts ...string) (*ScriptFilter, error) {
	f := &ScriptFilter{}
	if err := f.setScripts(scripts); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *ScriptFilter) setScripts(scripts []string) error {
	tables := make([]*unicode.RangeTable, 0, len(scripts))
	for _, name := range scripts {
		table, ok := unicode.Scripts[name]
		if !ok {
			return errors.Newf("unknown script: %s", name)
		}
		tables = append(tables, table)
	}
	f.tables = tables
	return nil
}

func (f *ScriptFilter) Name() string {
	return "script_filter"
}

func (f *ScriptFilter) Description() string {
	return "Drops tracks whose title is written in a blocked script"
}

func (f *ScriptFilter) ReturnCodes() []string {
	return []string{"blocked_script"}
}

func (f *ScriptFilter) ValidateConfig(settings map[string]any) error {
	var config ScriptConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	if err := f.setScripts(config.Scripts); err != nil {
		return err
	}
	zlog.Info().Msgf("script filter config: %+v", config)
	return nil
}

func (f *ScriptFilter) Check(_ context.Context, t track.Track, _ []track.Track) Result {
	for _, r := range t.Title {
		if unicode.In(r, f.tables...) {
			return Reject("blocked_script")
		}
	}
	return Accept()
}

func init() {
	Register("script_filter", func() Filter {
		return &ScriptFilter{}
	})
}
