package fileutil

import (
	"os"
	"strings"
)

// IsSharedLibrary returns whether the given path names an ELF shared object.
func IsSharedLibrary(path string) bool {
	return strings.HasSuffix(path, ".so")
}

// Exists returns whether path exists in the file system, following symlinks.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsDir returns whether path exists and is a directory.
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
