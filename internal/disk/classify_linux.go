//go:build linux

package disk

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Classify reports the filesystem holding path
func Classify(path string) (Info, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Info{Name: "unknown", Kind: KindUnknown}, fmt.Errorf("statfs %s: %w", path, err)
	}
	// f_type width differs between architectures; the magic fits in 32 bits.
	return classifyMagic(uint32(st.Type)), nil
}
