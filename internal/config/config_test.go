package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) (*pflag.FlagSet, []string) {
	t.Helper()
	flags := pflag.NewFlagSet("rundaemon", pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.BoolP("chdir", "c", false, "")
	flags.BoolP("no-redirect", "i", false, "")
	flags.StringP("pid-file", "p", "", "")
	flags.Bool("debug", false, "")
	if err := flags.Parse(args); err != nil {
		t.Fatal(err)
	}
	return flags, flags.Args()
}

// isolate points config lookup at an empty directory and clears the
// environment overrides so the host cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{"RUNDAEMON_CHDIR", "RUNDAEMON_REDIRECT_STDIO", "RUNDAEMON_PID_FILE", "RUNDAEMON_DEBUG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	return dir
}

func TestConfigDir_XDGSet(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	got := configDir()
	want := filepath.Join("/custom/config", "rundaemon")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestConfigDir_HomeDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	got := configDir()
	want := filepath.Join(home, ".config", "rundaemon")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	flags, args := newFlags(t, "sleep", "10")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ChangeDirectory {
		t.Error("chdir should default to false")
	}
	if !cfg.RedirectStdio {
		t.Error("redirect_stdio should default to true")
	}
	if cfg.PIDFile != "" {
		t.Errorf("pid file should be unset, got %q", cfg.PIDFile)
	}
	if !reflect.DeepEqual(cfg.Command, []string{"sleep", "10"}) {
		t.Errorf("got command %q", cfg.Command)
	}
}

func TestLoad_Flags(t *testing.T) {
	isolate(t)
	flags, args := newFlags(t, "-ci", "-p", "/run/x.pid", "prog", "-c", "--flag")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ChangeDirectory || cfg.RedirectStdio || cfg.PIDFile != "/run/x.pid" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	// Options after the command belong to the command.
	if !reflect.DeepEqual(cfg.Command, []string{"prog", "-c", "--flag"}) {
		t.Errorf("got command %q", cfg.Command)
	}
}

func TestLoad_NoCommand(t *testing.T) {
	isolate(t)
	flags, args := newFlags(t, "-c")

	_, err := Load(flags, args)
	if !errors.Is(err, ErrNoCommand) {
		t.Fatalf("got %v, want ErrNoCommand", err)
	}
	if err.Error() != "No command specified" {
		t.Errorf("unexpected message %q", err)
	}
}

func TestLoad_EmptyPIDFile(t *testing.T) {
	isolate(t)
	flags, args := newFlags(t, "-p", "", "true")

	if _, err := Load(flags, args); !errors.Is(err, ErrEmptyPIDFile) {
		t.Fatalf("got %v, want ErrEmptyPIDFile", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("RUNDAEMON_CHDIR", "1")
	t.Setenv("RUNDAEMON_REDIRECT_STDIO", "false")
	t.Setenv("RUNDAEMON_PID_FILE", "/tmp/env.pid")
	flags, args := newFlags(t, "true")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ChangeDirectory || cfg.RedirectStdio || cfg.PIDFile != "/tmp/env.pid" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("RUNDAEMON_PID_FILE", "/tmp/env.pid")
	flags, args := newFlags(t, "-p", "/tmp/flag.pid", "true")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PIDFile != "/tmp/flag.pid" {
		t.Errorf("got %q, want flag value", cfg.PIDFile)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	if err := os.MkdirAll(filepath.Join(dir, "rundaemon"), 0755); err != nil {
		t.Fatal(err)
	}
	toml := "chdir = true\nredirect_stdio = false\npid_file = \"~/daemon.pid\"\n"
	if err := os.WriteFile(filepath.Join(dir, "rundaemon", "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	flags, args := newFlags(t, "true")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.ChangeDirectory || cfg.RedirectStdio {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if want := filepath.Join(home, "daemon.pid"); cfg.PIDFile != want {
		t.Errorf("got pid file %q, want %q", cfg.PIDFile, want)
	}
}

func TestLoad_NoRedirectFlagOverridesConfigFile(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, "rundaemon"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "rundaemon", "config.toml"), []byte("redirect_stdio = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	flags, args := newFlags(t, "-i", "true")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RedirectStdio {
		t.Error("-i should disable redirection")
	}
}

func TestArgs_RoundTrip(t *testing.T) {
	want := &Config{
		ChangeDirectory: true,
		RedirectStdio:   false,
		PIDFile:         "/var/run/app.pid",
		Debug:           true,
		Command:         []string{"app", "--", "-x"},
	}
	flags, args := newFlags(t, want.Args()...)

	got, err := FromFlags(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestArgs_NoPIDFile(t *testing.T) {
	cfg := &Config{RedirectStdio: true, Command: []string{"-dash"}}
	for _, arg := range cfg.Args() {
		if arg == "--pid-file=" {
			t.Fatal("unset pid file must not be rendered")
		}
	}
	flags, args := newFlags(t, cfg.Args()...)
	got, err := FromFlags(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("got %+v, want %+v", got, cfg)
	}
}

func TestLoad_EmptyProgramNameIsACommand(t *testing.T) {
	isolate(t)
	flags, args := newFlags(t, "--", "")

	cfg, err := Load(flags, args)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Command, []string{""}) {
		t.Errorf("got command %q", cfg.Command)
	}
}
