package shred

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"shred-sage/internal/fsops"
)

// DefaultRenameCount is how many random names a path goes through before removal
const DefaultRenameCount = 3

// DefaultExtensions disguise rotated names as ordinary files. The choice of
// suffix carries no security meaning.
var DefaultExtensions = []string{
	".txt", ".doc", ".docx", ".pdf", ".xls", ".xlsx", ".ppt", ".pptx",
	".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".svg", ".psd",
	".mp3", ".wav", ".wma", ".aac", ".ogg", ".flac", ".m4a", ".mid",
	".mp4", ".avi", ".mov", ".wmv", ".flv", ".mkv", ".webm", ".m4v",
	".zip", ".rar", ".7z", ".tar", ".gz", ".bz2", ".iso", ".cab",
	".exe", ".dll", ".sys", ".msi", ".bat", ".cmd", ".reg", ".ini",
	".html", ".htm", ".css", ".js", ".xml", ".json", ".yaml", ".sql",
	".php", ".py", ".rb", ".sh", ".c", ".cpp", ".h", ".hpp", ".java",
	".class", ".jar", ".war", ".ear", ".go", ".rs", ".swift", ".kt",
	".apk", ".ipa", ".app", ".deb", ".rpm", ".pkg", ".dmg",
}

// Rotator renames a path through a series of random names in its own
// directory, scrubbing the original name from the directory entry.
type Rotator struct {
	fs    afero.Fs
	rand  io.Reader
	count int
	exts  []string
}

// NewRotator returns a Rotator. count <= 0 means DefaultRenameCount and an
// empty extension list means DefaultExtensions.
func NewRotator(fsys afero.Fs, rnd io.Reader, count int, exts []string) *Rotator {
	if count <= 0 {
		count = DefaultRenameCount
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	return &Rotator{fs: fsys, rand: rnd, count: count, exts: exts}
}

// Rotate renames a regular file or directory count times and returns its
// final path. On failure the returned path is the last name the entry is
// known to have, which is the original path if no rename succeeded.
func (r *Rotator) Rotate(path string) (string, error) {
	return r.rotate(path, func(m fs.FileMode) bool {
		return m.IsRegular() || m.IsDir()
	})
}

// rotateEntry is Rotate for any directory entry, including symlinks, which
// are renamed without being followed.
func (r *Rotator) rotateEntry(path string) (string, error) {
	return r.rotate(path, func(fs.FileMode) bool { return true })
}

func (r *Rotator) rotate(path string, accept func(fs.FileMode) bool) (string, error) {
	dir := filepath.Dir(path)
	current := path

	for i := 0; i < r.count; i++ {
		fi, err := fsops.Lstat(r.fs, current)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return current, &Error{Kind: KindNotFound, Op: "rotate", Path: current, Msg: "path does not exist", Err: err}
			}
			return current, wrap("rotate", current, "stat failed", err)
		}
		if !accept(fi.Mode()) {
			return current, &Error{Kind: KindNotFound, Op: "rotate", Path: current, Msg: "path is neither a file nor a directory"}
		}

		name, err := r.randomName()
		if err != nil {
			return current, wrap("rotate", current, "random name", err)
		}
		next := filepath.Join(dir, name)
		if err := r.fs.Rename(current, next); err != nil {
			return current, wrap("rotate", current, "rename failed", err)
		}
		current = next
	}
	return current, nil
}

// randomName returns 32 lowercase hex characters plus a catalog extension.
func (r *Rotator) randomName() (string, error) {
	var buf [20]byte
	if _, err := io.ReadFull(r.rand, buf[:]); err != nil {
		return "", fmt.Errorf("random source: %w", err)
	}
	idx := binary.LittleEndian.Uint32(buf[16:]) % uint32(len(r.exts))
	return hex.EncodeToString(buf[:16]) + r.exts[idx], nil
}
