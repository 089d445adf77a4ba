package cmdutils

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddFlags executes the given Add*Flag functions and returns a function
// which binds all those flags to viper keys. The returned function must be
// called in the PreRun of the command, because binding viper keys to flags
// in New would re-bind keys which were bound to the flags of other commands
// before.
func AddFlags(cmd *cobra.Command, addFlagFuncs ...func(*cobra.Command) func()) func() {
	var bindFuncs []func()
	for _, addFlag := range addFlagFuncs {
		bindFuncs = append(bindFuncs, addFlag(cmd))
	}
	return func() {
		for _, bindFlag := range bindFuncs {
			bindFlag()
		}
	}
}

func bindFlag(key string, flag *pflag.Flag) func() {
	return func() {
		_ = viper.BindPFlag(key, flag)
	}
}

func AddPathFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("path", "p", "",
		"Path under which to look for shared-object files")
	return bindFlag("path", cmd.Flags().Lookup("path"))
}

func AddCopyFromFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("copy-from", "f", "",
		"Root of the filesystem to copy shared objects from")
	return bindFlag("copy-from", cmd.Flags().Lookup("copy-from"))
}

func AddCopyToFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("copy-to", "t", "",
		"Directory to copy shared objects to")
	return bindFlag("copy-to", cmd.Flags().Lookup("copy-to"))
}

func AddLibPathFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringArrayP("lib-path", "l", nil,
		"Extra library path(s) to search for shared objects, relative to the copy-from root (can be specified multiple times)")
	return bindFlag("lib-path", cmd.Flags().Lookup("lib-path"))
}

func AddOutputFileFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("output-file", "o", "",
		"File to write the copy script to instead of stdout")
	return bindFlag("output-file", cmd.Flags().Lookup("output-file"))
}

func AddExecuteFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("execute", false,
		"Perform the copies directly instead of emitting a copy script")
	return bindFlag("execute", cmd.Flags().Lookup("execute"))
}

func AddForceFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("force", false,
		"Overwrite the output file without asking")
	return bindFlag("force", cmd.Flags().Lookup("force"))
}

func AddJSONFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("json", false,
		"Print the dependency list as JSON")
	return bindFlag("json", cmd.Flags().Lookup("json"))
}

func AddSkipBrokenFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("skip-broken", false,
		"Skip files which can't be parsed instead of aborting the scan")
	return bindFlag("skip-broken", cmd.Flags().Lookup("skip-broken"))
}

func AddJobsFlag(cmd *cobra.Command) func() {
	cmd.Flags().IntP("jobs", "j", 1,
		"Number of files to scan in parallel. With more than one job the order of verbose trace output is not deterministic")
	return bindFlag("jobs", cmd.Flags().Lookup("jobs"))
}
