package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jcdickinson/rundaemon/internal/config"
	"github.com/jcdickinson/rundaemon/internal/daemon"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version is reported by --version.
const Version = "1.0"

var (
	changeDir  bool
	noRedirect bool
	pidFile    string
	debug      bool
	stageName  string
	version    bool
)

var rootCmd = &cobra.Command{
	Use:   "rundaemon [-hci] [-p PIDFILE] COMMAND [ARGUMENTS...]",
	Short: "Run any command as a detached background daemon",
	Long: `rundaemon detaches COMMAND from the terminal and the calling process.

The command runs in a new session as an orphaned process. Its stdin, stdout
and stderr are redirected to /dev/null unless -i is given. Other open file
descriptors and the environment are passed through unchanged.`,
	Version:               Version,
	Args:                  cobra.ArbitraryArgs,
	DisableFlagsInUseLine: true,
	SilenceErrors:         true,
	SilenceUsage:          true,
	Run:                   runRoot,
}

func Execute() {
	rootCmd.SetArgs(terminateOptions(rootCmd.Flags(), os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid options: %v\n%s", err, rootCmd.UsageString())
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate("rundaemon version {{.Version}}\n")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.Flags()
	flags.SetInterspersed(false)
	flags.BoolVarP(&changeDir, "chdir", "c", false, "change directory to / before launching COMMAND")
	flags.BoolVarP(&noRedirect, "no-redirect", "i", false, "don't redirect stdin/stdout/stderr to /dev/null")
	flags.StringVarP(&pidFile, "pid-file", "p", "", "write the daemon's PID to `PIDFILE`")
	flags.BoolVar(&debug, "debug", false, "trace each detachment stage to stderr")
	flags.BoolVar(&version, "version", false, "print the version and exit")

	flags.StringVar(&stageName, "stage", string(daemon.StageLaunch), "internal: detachment stage of this process")
	flags.MarkHidden("stage")
}

func runRoot(cmd *cobra.Command, args []string) {
	stage, err := daemon.ParseStage(stageName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// Only Spawn may start a later stage; it marks the child's argv[0].
	if stage != daemon.StageLaunch && !daemon.SpawnedAs(os.Args[0], stage) {
		fmt.Fprintf(os.Stderr, "Error: Invalid options: --stage is reserved for internal use\n%s", cmd.UsageString())
		os.Exit(1)
	}

	var cfg *config.Config
	if stage == daemon.StageLaunch {
		cfg, err = config.Load(cmd.Flags(), args)
	} else {
		cfg, err = config.FromFlags(cmd.Flags(), args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n%s", err, cmd.UsageString())
		os.Exit(1)
	}

	os.Exit(runStage(stage, cfg))
}

// terminateOptions inserts "--" in front of the first non-option argument so
// that COMMAND is never mistaken for one of cobra's own commands.
func terminateOptions(flags *pflag.FlagSet, args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			return args
		case arg == "-" || !strings.HasPrefix(arg, "-"):
			out := append([]string{}, args[:i]...)
			out = append(out, "--")
			return append(out, args[i:]...)
		case strings.HasPrefix(arg, "--"):
			name := arg[2:]
			if strings.Contains(name, "=") {
				continue
			}
			if takesValue(flags.Lookup(name)) {
				i++
			}
		default:
			for j := 1; j < len(arg); j++ {
				if takesValue(flags.ShorthandLookup(arg[j : j+1])) {
					if j == len(arg)-1 {
						i++
					}
					break
				}
			}
		}
	}
	return args
}

func takesValue(f *pflag.Flag) bool {
	return f != nil && f.NoOptDefVal == ""
}
