// Package collector walks a directory tree for shared objects and
// aggregates the shared-library dependencies extracted from each of them.
package collector

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gookit/color"
	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/sync/errgroup"

	"github.com/distroless-tools/copylibs/internal/dynelf"
	"github.com/distroless-tools/copylibs/pkg/log"
	"github.com/distroless-tools/copylibs/util/fileutil"
)

// ErrorPolicy controls what happens when a single file can't be scanned.
type ErrorPolicy string

const (
	// OnErrorAbort aborts the whole scan on the first file which can't be
	// scanned.
	OnErrorAbort ErrorPolicy = "abort"
	// OnErrorSkip skips files which can't be scanned, logs a warning for
	// each and reports a summary at the end of the scan.
	OnErrorSkip ErrorPolicy = "skip"
)

type Options struct {
	// RootPath is the directory tree to scan for *.so files.
	RootPath string
	// OnError selects the per-file failure policy. Defaults to OnErrorAbort.
	OnError ErrorPolicy
	// Jobs is the number of files scanned in parallel. Values below 2 scan
	// sequentially. The result is the same either way, but the order of
	// verbose trace output is not deterministic with parallel jobs.
	Jobs int
}

// Collect returns the deduplicated, lexicographically sorted set of
// shared-library names needed by all *.so files under opts.RootPath.
func Collect(opts *Options) ([]string, error) {
	if opts.OnError == "" {
		opts.OnError = OnErrorAbort
	}

	info, err := os.Stat(opts.RootPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("not a directory: %s", opts.RootPath)
	}

	// ** also matches zero directories, so a bare x.so directly under the
	// root is included.
	matches, err := zglob.Glob(filepath.Join(opts.RootPath, "**", "*.so"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Deterministic scan and trace order.
	sort.Strings(matches)

	set := make(map[string]struct{})
	var skipped int
	var mutex sync.Mutex

	scan := func(path string) error {
		names, err := scanFile(path)
		mutex.Lock()
		defer mutex.Unlock()
		if err != nil {
			if opts.OnError == OnErrorSkip {
				log.Warnf("Skipping %s: %v", path, err)
				skipped++
				return nil
			}
			return err
		}
		for name := range names {
			set[name] = struct{}{}
		}
		return nil
	}

	if opts.Jobs > 1 {
		group := new(errgroup.Group)
		group.SetLimit(opts.Jobs)
		for _, path := range matches {
			path := path
			group.Go(func() error {
				return scan(path)
			})
		}
		err = group.Wait()
	} else {
		for _, path := range matches {
			err = scan(path)
			if err != nil {
				break
			}
		}
	}
	if err != nil {
		return nil, err
	}

	if skipped > 0 {
		log.Warnf("Skipped %d file(s) which couldn't be scanned", skipped)
	}

	names := maps.Keys(set)
	sort.Strings(names)
	return names, nil
}

// scanFile reads a single shared object and returns the set of
// shared-library names from its DT_NEEDED entries.
func scanFile(path string) (map[string]struct{}, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// Directories named *.so match the glob too, but only regular files can
	// be shared objects.
	if !info.Mode().IsRegular() || !fileutil.IsSharedLibrary(path) {
		return map[string]struct{}{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	log.Debugf("%s", color.Green.Sprint(path))

	names, err := dynelf.ReadDependencies(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	traced := maps.Keys(names)
	sort.Strings(traced)
	for _, name := range traced {
		log.Debugf("  %s", color.Yellow.Sprint(name))
	}
	return names, nil
}
