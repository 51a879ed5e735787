package catalog

import (
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
)

var validate = validator.New()

// decodeSettings fills dst from a provider settings map, applies defaults and validates it.
func decodeSettings(settings map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(dst); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validate.Struct(dst); err != nil {
		zlog.Error().Msgf("catalog: settings validation failed: %v", err)
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
