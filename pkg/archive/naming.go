package archive

import (
	"errors"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5"
)

// splitName splits a file name into base and extension (without dot).
// Dotfiles such as ".bashrc" have no extension.
func splitName(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// candidateName returns the n-th collision-free candidate for name:
// "name.ext", "name (1).ext", "name (2).ext", ...
func candidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	base, ext := splitName(name)
	candidate := base + " (" + strconv.Itoa(n) + ")"
	if ext != "" {
		candidate += "." + ext
	}
	return candidate
}

// UniqueName probes dir in fs for the first free variant of name. The probe
// is linear and unbounded.
func UniqueName(fs billy.Filesystem, dir, name string) (string, error) {
	for n := 0; ; n++ {
		candidate := candidateName(name, n)
		_, err := fs.Lstat(path.Join(dir, candidate))
		if errors.Is(err, os.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}
