package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	ErrNoCommand    = errors.New("No command specified")
	ErrEmptyPIDFile = errors.New("PID file length is zero")
)

// Config is the invocation configuration, resolved once by the launching
// process and handed verbatim to every later stage.
type Config struct {
	ChangeDirectory bool   `mapstructure:"chdir"`
	RedirectStdio   bool   `mapstructure:"redirect_stdio"`
	PIDFile         string `mapstructure:"pid_file"`
	Debug           bool   `mapstructure:"debug"`

	Command []string `mapstructure:"-"`
}

// Validate checks the invariants every stage relies on. An empty program
// name is accepted here and fails when it is executed.
func (c *Config) Validate() error {
	if len(c.Command) == 0 {
		return ErrNoCommand
	}
	return nil
}

// configDir returns the directory searched for config.toml.
// Checks XDG_CONFIG_HOME, then ~/.config.
func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "rundaemon")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "rundaemon")
	}
	return ""
}

// InitializeViper sets defaults, the environment prefix and the optional
// config file on v.
func InitializeViper(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	if dir := configDir(); dir != "" {
		v.AddConfigPath(dir)
	}

	v.SetDefault("chdir", false)
	v.SetDefault("redirect_stdio", true)
	v.SetDefault("pid_file", "")
	v.SetDefault("debug", false)

	v.SetEnvPrefix("RUNDAEMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// bindFlags maps the command-line flags onto viper keys. The -i flag is a
// negation of redirect_stdio, so it is applied by hand.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range map[string]string{
		"chdir":    "chdir",
		"pid_file": "pid-file",
		"debug":    "debug",
	} {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	if f := flags.Lookup("no-redirect"); f != nil && f.Changed {
		noRedirect, err := flags.GetBool("no-redirect")
		if err != nil {
			return err
		}
		v.Set("redirect_stdio", !noRedirect)
	}
	return nil
}

func expandHomeHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.String {
			return data, nil
		}
		s := data.(string)
		if !strings.HasPrefix(s, "~/") {
			return data, nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return data, nil
		}
		return filepath.Join(home, s[2:]), nil
	}
}

// Load resolves the configuration of the launching process from flags,
// environment, config file and defaults, in that order of precedence.
func Load(flags *pflag.FlagSet, args []string) (*Config, error) {
	if f := flags.Lookup("pid-file"); f != nil && f.Changed && f.Value.String() == "" {
		return nil, ErrEmptyPIDFile
	}

	v := viper.New()
	if err := InitializeViper(v); err != nil {
		return nil, err
	}
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       expandHomeHookFunc(),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Command = args
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// FromFlags rebuilds the configuration from explicit stage flags without
// consulting the environment or config file.
func FromFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	var (
		config Config
		err    error
	)
	if config.ChangeDirectory, err = flags.GetBool("chdir"); err != nil {
		return nil, err
	}
	noRedirect, err := flags.GetBool("no-redirect")
	if err != nil {
		return nil, err
	}
	config.RedirectStdio = !noRedirect
	if config.PIDFile, err = flags.GetString("pid-file"); err != nil {
		return nil, err
	}
	if config.Debug, err = flags.GetBool("debug"); err != nil {
		return nil, err
	}

	config.Command = args
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Args renders c back into the flag form understood by FromFlags. The
// command always follows a "--" terminator.
func (c *Config) Args() []string {
	args := []string{
		fmt.Sprintf("--chdir=%t", c.ChangeDirectory),
		fmt.Sprintf("--no-redirect=%t", !c.RedirectStdio),
		fmt.Sprintf("--debug=%t", c.Debug),
	}
	if c.PIDFile != "" {
		args = append(args, "--pid-file="+c.PIDFile)
	}
	args = append(args, "--")
	return append(args, c.Command...)
}
