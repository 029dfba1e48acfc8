// Package cliopts loads configuration from a yaml file, environment
// variables, and command line flags, in that order of precedence.
package cliopts

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

type Options struct {
	Filename  string
	EnvPrefix string
	Flags     *pflag.FlagSet
}

// Load configuration into target. Configuration may come from multiple
// sources.
//
// To set default values, apply them to target before calling Load.
// Configuration is loaded in the following order:
//  1. from a yaml file identified by opts.Filename
//  2. from environment variables that start with opts.EnvPrefix
//  3. from command line flags in opts.Flags
//
// Values are matched to the fields in target using the 'config' struct field
// tag. Flag names and config tags use the same kebab-case spelling, so a
// flag --validity-days sets the field tagged `config:"validity-days"`.
func Load(target interface{}, opts Options) error {
	if opts.Filename != "" {
		if err := loadFromFile(target, opts); err != nil {
			return err
		}
	}
	if opts.EnvPrefix != "" && opts.Flags != nil {
		if err := DefaultsFromEnv(opts.EnvPrefix, opts.Flags); err != nil {
			return err
		}
	}
	if opts.Flags != nil {
		if err := loadFromFlags(target, opts); err != nil {
			return err
		}
	}
	return nil
}

func loadFromFile(target interface{}, opts Options) error {
	fh, err := os.Open(opts.Filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer fh.Close()

	var raw map[string]interface{}
	if err := yaml.NewDecoder(fh).Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode yaml from %s: %w", opts.Filename, err)
	}

	cfg := DecodeConfig(target)
	decoder, err := mapstructure.NewDecoder(&cfg)
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode from %s: %w", opts.Filename, err)
	}
	return nil
}

func loadFromFlags(target interface{}, opts Options) error {
	source := map[string]interface{}{}

	// Visit only reports flags that were set on the command line
	opts.Flags.Visit(func(flag *pflag.Flag) {
		if sv, ok := flag.Value.(pflag.SliceValue); ok {
			source[flag.Name] = sv.GetSlice()
			return
		}
		source[flag.Name] = flag.Value.String()
	})

	cfg := DecodeConfig(target)
	cfg.WeaklyTypedInput = true

	decoder, err := mapstructure.NewDecoder(&cfg)
	if err != nil {
		return err
	}
	if err := decoder.Decode(source); err != nil {
		return fmt.Errorf("failed to decode from command line flags: %w", err)
	}
	return nil
}

const fieldTagName = "config"

// DecodeConfig returns the default DecoderConfig used by Load. This config
// can be used by tests in other packages to simulate a call to Load.
func DecodeConfig(target interface{}) mapstructure.DecoderConfig {
	return mapstructure.DecoderConfig{
		Squash:  true,
		Result:  target,
		TagName: fieldTagName,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}
}
