package script

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/distroless-tools/copylibs/internal/cmdutils"
	"github.com/distroless-tools/copylibs/internal/collector"
	"github.com/distroless-tools/copylibs/internal/config"
	"github.com/distroless-tools/copylibs/internal/copyscript"
	"github.com/distroless-tools/copylibs/pkg/dialog"
	"github.com/distroless-tools/copylibs/pkg/log"
	"github.com/distroless-tools/copylibs/util/fileutil"
)

type options struct {
	Path       string   `mapstructure:"path"`
	CopyFrom   string   `mapstructure:"copy-from"`
	CopyTo     string   `mapstructure:"copy-to"`
	LibPaths   []string `mapstructure:"lib-path"`
	OutputFile string   `mapstructure:"output-file"`
	Execute    bool     `mapstructure:"execute"`
	Force      bool     `mapstructure:"force"`
	SkipBroken bool     `mapstructure:"skip-broken"`
	Jobs       int      `mapstructure:"jobs"`

	interactive bool
}

func (opts *options) validate() error {
	for _, flag := range []struct{ name, value string }{
		{"path", opts.Path},
		{"copy-from", opts.CopyFrom},
		{"copy-to", opts.CopyTo},
	} {
		if flag.value == "" {
			err := errors.Errorf("Flag %q must be set", flag.name)
			return cmdutils.WrapIncorrectUsageError(err)
		}
	}
	if opts.Jobs < 1 {
		err := errors.New("Flag \"jobs\" must be at least 1")
		return cmdutils.WrapIncorrectUsageError(err)
	}
	if opts.Execute && opts.OutputFile != "" {
		err := errors.New("Flags \"execute\" and \"output-file\" can't be combined")
		return cmdutils.WrapIncorrectUsageError(err)
	}
	return nil
}

type scriptCmd struct {
	*cobra.Command
	opts *options
}

func New() *cobra.Command {
	return newWithOptions(&options{})
}

func newWithOptions(opts *options) *cobra.Command {
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "script",
		Short: "Emit a script which copies the found dependencies into an image filesystem",
		Long: `This command scans a directory tree for *.so files like 'copylibs scan' and
emits a POSIX shell script with one copy command per found shared-library
dependency. Each dependency is looked up in the library search paths below
the copy-from root; the destination is the copy-to directory.

With --execute the copies are performed directly instead of emitting a
script.
`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()

			err := config.ParseConfig(opts)
			if err != nil {
				return err
			}

			opts.interactive = term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

			return opts.validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := scriptCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddPathFlag,
		cmdutils.AddCopyFromFlag,
		cmdutils.AddCopyToFlag,
		cmdutils.AddLibPathFlag,
		cmdutils.AddOutputFileFlag,
		cmdutils.AddExecuteFlag,
		cmdutils.AddForceFlag,
		cmdutils.AddSkipBrokenFlag,
		cmdutils.AddJobsFlag,
	)

	return cmd
}

func (c *scriptCmd) run() error {
	onError := collector.OnErrorAbort
	if c.opts.SkipBroken {
		onError = collector.OnErrorSkip
	}

	names, err := collector.Collect(&collector.Options{
		RootPath: c.opts.Path,
		OnError:  onError,
		Jobs:     c.opts.Jobs,
	})
	if err != nil {
		return err
	}

	scriptOpts := &copyscript.Options{
		Names:    names,
		CopyFrom: c.opts.CopyFrom,
		CopyTo:   c.opts.CopyTo,
		LibPaths: c.opts.LibPaths,
	}

	if c.opts.Execute {
		return copyscript.Execute(scriptOpts)
	}

	script, err := copyscript.Generate(scriptOpts)
	if err != nil {
		return err
	}

	if c.opts.OutputFile == "" {
		_, _ = fmt.Fprint(c.OutOrStdout(), script)
		return nil
	}

	if fileutil.Exists(c.opts.OutputFile) && !c.opts.Force {
		if !c.opts.interactive {
			err := errors.Errorf("%s already exists, use --force to overwrite it", c.opts.OutputFile)
			return cmdutils.WrapIncorrectUsageError(err)
		}
		overwrite, err := dialog.Confirm(fmt.Sprintf("%s already exists. Overwrite it?", c.opts.OutputFile), false)
		if err != nil {
			return err
		}
		if !overwrite {
			log.Info("Not overwriting the output file.")
			return nil
		}
	}

	err = copyscript.WriteFile(script, c.opts.OutputFile)
	if err != nil {
		return err
	}

	log.Successf("Copy script written to %s", c.opts.OutputFile)
	return nil
}
