// Package copyscript turns a list of shared-library names into copy
// commands which stage those libraries for a minimal container image. The
// libraries are searched in a set of library paths below a copy-from root
// and copied into a flat copy-to directory.
package copyscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/distroless-tools/copylibs/pkg/log"
	"github.com/distroless-tools/copylibs/util/fileutil"
)

// DefaultLibPaths are the library paths searched below the copy-from root
// when no extra paths are given. Relative to the copy-from root.
var DefaultLibPaths = []string{
	"/lib/x86_64-linux-gnu",
	"/lib64",
}

type Options struct {
	// Names is the sorted list of shared-library names to copy.
	Names []string
	// CopyFrom is the root of the filesystem the libraries are copied from.
	CopyFrom string
	// CopyTo is the directory the libraries are copied to.
	CopyTo string
	// LibPaths are extra library paths searched in addition to
	// DefaultLibPaths, relative to CopyFrom.
	LibPaths []string
}

// Generate returns a POSIX shell script which copies every library from
// opts.Names which can be found in one of the library paths below
// opts.CopyFrom into opts.CopyTo. Libraries found in no library path are
// skipped with a warning.
func Generate(opts *Options) (string, error) {
	resolved := resolve(opts)

	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	sb.WriteString("# Generated by copylibs. Copies the shared-library dependencies of a\n")
	sb.WriteString("# directory tree into a minimal container image filesystem.\n")
	sb.WriteString("set -e\n\n")
	fmt.Fprintf(&sb, "mkdir -p %s\n", shellescape.Quote(opts.CopyTo))
	for _, src := range resolved {
		dst := filepath.Join(opts.CopyTo, filepath.Base(src))
		fmt.Fprintf(&sb, "cp %s %s\n", shellescape.Quote(src), shellescape.Quote(dst))
	}

	return sb.String(), nil
}

// Execute performs the copies directly instead of emitting a script.
func Execute(opts *Options) error {
	resolved := resolve(opts)

	err := os.MkdirAll(opts.CopyTo, 0o755)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, src := range resolved {
		dst := filepath.Join(opts.CopyTo, filepath.Base(src))
		log.Debugf("Copying %s to %s", src, dst)
		err = copy.Copy(src, dst)
		if err != nil {
			return errors.WithStack(err)
		}
	}

	log.Successf("Copied %d shared libraries to %s", len(resolved), opts.CopyTo)
	return nil
}

// WriteFile writes the script to path, executable.
func WriteFile(script string, path string) error {
	err := os.WriteFile(path, []byte(script), 0o755)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// resolve maps every library name to its source path below the copy-from
// root. The first library path containing the name wins.
func resolve(opts *Options) []string {
	libPaths := append(append([]string{}, DefaultLibPaths...), opts.LibPaths...)

	var resolved []string
	for _, name := range opts.Names {
		var found bool
		for _, libPath := range libPaths {
			src := filepath.Join(opts.CopyFrom, libPath, name)
			if fileutil.Exists(src) {
				resolved = append(resolved, src)
				found = true
				break
			}
		}
		if !found {
			log.Warnf("Library %s not found in any library path below %s", name, opts.CopyFrom)
		}
	}
	return resolved
}
