package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/usbsniff/sim/timing"
)

// EnvPrefix prefixes the environment variables that override settings. The
// key capture.max_payload is read from USBSNIFF_CAPTURE_MAX_PAYLOAD.
const EnvPrefix = "USBSNIFF"

// LoadEnvFiles adds the variables of the .env files to the environment.
// Missing files are skipped. Variables already set are kept.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", p, err)
		}
	}

	return nil
}

// Load reads the configuration. Settings come from the defaults, then the
// YAML file at path if path is not empty, then the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config

	err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			freqHook(),
			mapstructure.StringToSliceHookFunc(","),
		)))
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults registers every leaf of the default config, so that each key
// can be overridden from the environment.
func setDefaults(v *viper.Viper, def Config) error {
	m := map[string]interface{}{}
	if err := mapstructure.Decode(def, &m); err != nil {
		return fmt.Errorf("failed to flatten defaults: %w", err)
	}

	setLeaves(v, "", m)

	return nil
}

func setLeaves(v *viper.Viper, prefix string, m map[string]interface{}) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		if sub, ok := val.(map[string]interface{}); ok {
			setLeaves(v, key, sub)
			continue
		}

		v.SetDefault(key, val)
	}
}

var freqType = reflect.TypeOf(timing.Freq(0))

func freqHook() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data interface{}) (interface{}, error) {
		if to != freqType || from.Kind() != reflect.String {
			return data, nil
		}

		return ParseFreq(data.(string))
	}
}

// ParseFreq parses a frequency such as "60MHz", "48 mhz" or "1e6".
func ParseFreq(s string) (timing.Freq, error) {
	str := strings.ToLower(strings.TrimSpace(s))
	unit := timing.Hz

	for _, u := range []struct {
		suffix string
		unit   timing.Freq
	}{
		{"ghz", timing.GHz},
		{"mhz", timing.MHz},
		{"khz", timing.KHz},
		{"hz", timing.Hz},
	} {
		if strings.HasSuffix(str, u.suffix) {
			str = strings.TrimSpace(strings.TrimSuffix(str, u.suffix))
			unit = u.unit

			break
		}
	}

	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid frequency %q: %w", s, err)
	}

	return timing.Freq(f) * unit, nil
}

// Dump writes the configuration as YAML.
func Dump(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(cfg); err != nil {
		return err
	}

	return enc.Close()
}
