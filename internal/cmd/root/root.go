package root

import (
	"os"

	"github.com/gookit/color"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	scancmd "github.com/distroless-tools/copylibs/internal/cmd/scan"
	scriptcmd "github.com/distroless-tools/copylibs/internal/cmd/script"
	"github.com/distroless-tools/copylibs/internal/cmdutils"
	"github.com/distroless-tools/copylibs/internal/version"
	"github.com/distroless-tools/copylibs/pkg/log"
)

func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "copylibs",
		Short:   "Find the shared-library dependencies needed to run the .so files under a directory tree",
		Version: version.Semver().String(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Process-wide console setup lives here and nowhere else, so the
			// core packages stay free of global state.
			if viper.GetBool("no-color") || !term.IsTerminal(int(os.Stderr.Fd())) {
				pterm.DisableColor()
				color.Disable()
			}
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Print trace output for every scanned file and found dependency")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentFlags().Bool("no-color", false,
		"Don't use colors in the output")
	_ = viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.AddCommand(scancmd.New())
	rootCmd.AddCommand(scriptcmd.New())

	return rootCmd
}

// Execute runs the root command and exits non-zero on error. The usage
// message is only printed for errors caused by incorrect command-line usage.
func Execute() {
	cmd, err := New().ExecuteC()
	if err != nil {
		var usageErr *cmdutils.IncorrectUsageError
		if errors.As(err, &usageErr) {
			log.Print(cmd.UsageString())
		}
		log.Error(err)
		os.Exit(1)
	}
}
