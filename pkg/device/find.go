package device

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

var ErrNodeNotFound = errors.New("device node not found")

// FindCharDevice returns the path of the character device in dir with the
// given major:minor numbers.
func FindCharDevice(dir string, major, minor uint32) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		var st unix.Stat_t
		if err := unix.Stat(path, &st); err != nil {
			continue
		}
		if st.Mode&unix.S_IFMT != unix.S_IFCHR {
			continue
		}
		rdev := uint64(st.Rdev)
		if unix.Major(rdev) == major && unix.Minor(rdev) == minor {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %d:%d in %s", ErrNodeNotFound, major, minor, dir)
}

// Glob lists the entries of dir whose names start with prefix, ordered by
// the node number after the prefix, so media2 comes before media10.
func Glob(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		a, b := filepath.Base(paths[i])[len(prefix):], filepath.Base(paths[j])[len(prefix):]
		na, errA := strconv.Atoi(a)
		nb, errB := strconv.Atoi(b)
		switch {
		case errA == nil && errB == nil:
			return na < nb
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return a < b
	})
	return paths, nil
}
