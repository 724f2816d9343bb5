package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c2fo/vfs/v7"
	"github.com/c2fo/vfs/v7/vfssimple"
)

// locationFor turns a local directory or a vfs URI (s3://, gs://, mem://...)
// into a Location. Local directories are created when missing.
func locationFor(dest string) (vfs.Location, error) {
	if isURI(dest) {
		if !strings.HasSuffix(dest, "/") {
			dest += "/"
		}
		return vfssimple.NewLocation(dest)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dest, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", abs, err)
	}
	return vfssimple.NewLocation(fileURI(abs) + "/")
}

// fileFor turns a local path or a vfs URI into a File.
func fileFor(src string) (vfs.File, error) {
	if isURI(src) {
		return vfssimple.NewFile(src)
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", src, err)
	}
	return vfssimple.NewFile(fileURI(abs))
}

func isURI(s string) bool {
	return strings.Contains(s, "://")
}

func fileURI(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // windows drive letters
	}
	return "file://" + p
}
