package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// roots is the set of directories the server may touch.
type roots []string

func newRoots(dirs []string) (roots, error) {
	var r roots
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", d, err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("allowed directory %s: %w", d, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("allowed directory %s is not a directory", d)
		}
		r = append(r, filepath.Clean(abs))
	}
	return r, nil
}

// resolve returns the absolute form of path if it lies inside a root.
// Symlinks are followed for the deepest existing ancestor so a link cannot
// point outside the allowed tree.
func (r roots) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("'path' is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	real, err := realPath(abs)
	if err != nil {
		return "", err
	}
	for _, root := range r {
		if within(root, real) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("access denied - path outside allowed directories: %s not in %s",
		path, strings.Join(r, ", "))
}

// maxLinkHops bounds dangling-link chains followed by realPath.
const maxLinkHops = 40

// realPath resolves symlinks in the longest existing prefix of p. A dangling
// symlink is followed to its target so writes through it are judged by
// where they would land.
func realPath(p string) (string, error) {
	rest := ""
	cur := p
	hops := 0
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}

		info, err := os.Lstat(cur)
		switch {
		case err == nil && info.Mode()&os.ModeSymlink != 0:
			hops++
			if hops > maxLinkHops {
				return "", fmt.Errorf("too many symlinks resolving %s", p)
			}
			target, err := os.Readlink(cur)
			if err != nil {
				return "", fmt.Errorf("reading symlink %s: %w", cur, err)
			}
			if !filepath.IsAbs(target) {
				dir, err := filepath.EvalSymlinks(filepath.Dir(cur))
				if err != nil {
					return "", fmt.Errorf("resolving symlink %s: %w", cur, err)
				}
				target = filepath.Join(dir, target)
			}
			cur = filepath.Clean(target)
			continue
		case err != nil && !os.IsNotExist(err):
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return filepath.Join(cur, rest), nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func within(root, p string) bool {
	if p == root {
		return true
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
