package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator decides whether a path may be handed to the shredder
type Validator struct {
	// AllowedRoots restricts targets when non-empty
	AllowedRoots   []string
	ProtectedPaths []string
}

// NewValidator creates a validator with optional allowed roots and extra protected paths
func NewValidator(allowed []string, extraProtected []string) *Validator {
	return &Validator{
		AllowedRoots:   normalizeRoots(allowed),
		ProtectedPaths: defaultProtected(normalizeRoots(extraProtected)),
	}
}

// ValidateShredTarget is the single authority on what may be shredded.
// The final path component is never followed: the shredder refuses or
// unlinks symlinks itself. Parent components are resolved so a symlinked
// directory cannot redirect a shred into a protected tree.
func (v *Validator) ValidateShredTarget(path string) error {
	if DetectTraversal(path) {
		return ErrTraversal
	}

	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if err := v.checkLocation(p); err != nil {
		return err
	}

	resolved, err := ResolveParent(p)
	if err != nil {
		// Missing parents mean a missing target; the shredder reports that itself.
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if resolved != p {
		if err := v.checkLocation(resolved); err != nil {
			return ErrSymlinkEscape
		}
	}
	return nil
}

func (v *Validator) checkLocation(p string) error {
	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}
	if len(v.AllowedRoots) > 0 && !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}
	return nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, part := range strings.Split(filepath.ToSlash(raw), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// ResolveParent resolves symlinks in every component but the last
func ResolveParent(cleanAbs string) (string, error) {
	parent, err := filepath.EvalSymlinks(filepath.Dir(cleanAbs))
	if err != nil {
		return "", err
	}
	parentAbs, err := filepath.Abs(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(parentAbs, filepath.Base(cleanAbs)), nil
}

// IsProtectedPath checks if path is, or is inside, a protected path.
// "/" itself is protected but does not protect everything beneath it.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	if p == string(os.PathSeparator) {
		return true
	}
	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if prot == string(os.PathSeparator) {
			continue
		}
		if hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return filepath.IsAbs(path)
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// defaultProtected returns the system trees no shred may touch, plus extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/bin",
		"/boot",
		"/dev",
		"/etc",
		"/lib",
		"/lib64",
		"/proc",
		"/sbin",
		"/sys",
		"/usr",
		"/var/lib/shred-sage",
	}
	return append(base, extra...)
}
