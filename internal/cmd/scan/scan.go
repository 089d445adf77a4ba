package scan

import (
	"fmt"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/distroless-tools/copylibs/internal/cmdutils"
	"github.com/distroless-tools/copylibs/internal/collector"
	"github.com/distroless-tools/copylibs/internal/config"
)

type options struct {
	Path       string `mapstructure:"path"`
	PrintJSON  bool   `mapstructure:"json"`
	SkipBroken bool   `mapstructure:"skip-broken"`
	Jobs       int    `mapstructure:"jobs"`
}

func (opts *options) validate() error {
	if opts.Path == "" {
		err := errors.New("Flag \"path\" must be set")
		return cmdutils.WrapIncorrectUsageError(err)
	}
	if opts.Jobs < 1 {
		err := errors.New("Flag \"jobs\" must be at least 1")
		return cmdutils.WrapIncorrectUsageError(err)
	}
	return nil
}

type scanCmd struct {
	*cobra.Command
	opts *options
}

func New() *cobra.Command {
	return newWithOptions(&options{})
}

func newWithOptions(opts *options) *cobra.Command {
	var bindFlags func()

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the shared-library dependencies of the .so files under a path",
		Long: `This command recursively scans a directory tree for *.so files, reads the
DT_NEEDED entries of each one and prints the deduplicated, sorted list of
shared-library names they depend on.

Only little-endian x86 and x86-64 ELF files are supported. By default the
scan aborts on the first file which can't be parsed; use --skip-broken to
skip such files and get a best-effort result instead.
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

			return opts.validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := scanCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddPathFlag,
		cmdutils.AddJSONFlag,
		cmdutils.AddSkipBrokenFlag,
		cmdutils.AddJobsFlag,
	)

	return cmd
}

func (c *scanCmd) run() error {
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

	if c.opts.PrintJSON {
		namesJSON, err := prettyjson.Marshal(names)
		if err != nil {
			return errors.WithStack(err)
		}
		_, _ = fmt.Fprintln(c.OutOrStdout(), string(namesJSON))
		return nil
	}

	for _, name := range names {
		_, _ = fmt.Fprintln(c.OutOrStdout(), name)
	}
	return nil
}
