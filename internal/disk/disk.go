// Package disk reports what kind of filesystem a path lives on, so callers
// can warn when overwriting in place does not reach the original blocks.
package disk

// Kind is a coarse filesystem class
type Kind string

const (
	KindLocal         Kind = "local"
	KindCopyOnWrite   Kind = "copy_on_write"
	KindLogStructured Kind = "log_structured"
	KindOverlay       Kind = "overlay"
	KindNetwork       Kind = "network"
	KindMemory        Kind = "memory"
	KindUnknown       Kind = "unknown"
)

// OverwriteReliable reports whether rewriting a file in place is expected
// to replace its original blocks on this kind of filesystem.
func (k Kind) OverwriteReliable() bool {
	switch k {
	case KindLocal, KindMemory:
		return true
	default:
		return false
	}
}

// Info describes the filesystem under a path
type Info struct {
	Name string // ext4, btrfs, nfs, ...
	Kind Kind
}

// Warning returns an operator-facing explanation, or "" when overwriting
// is expected to be effective.
func (i Info) Warning() string {
	switch i.Kind {
	case KindCopyOnWrite:
		return i.Name + " is copy-on-write; overwrites are written to new blocks and old data may survive in snapshots"
	case KindLogStructured:
		return i.Name + " is log-structured; overwrites are appended and old data may survive until garbage collection"
	case KindOverlay:
		return "overlay filesystem; the lower layer copy is not touched"
	case KindNetwork:
		return i.Name + " is a network filesystem; the server decides where overwrites land"
	case KindUnknown:
		return "filesystem type unknown; overwrite effectiveness cannot be assessed"
	default:
		return ""
	}
}

// statfs f_type magic numbers
const (
	magicExt4     = 0xEF53
	magicXFS      = 0x58465342
	magicBtrfs    = 0x9123683E
	magicZFS      = 0x2FC12FC1
	magicBcachefs = 0xCA451A4E
	magicF2FS     = 0xF2F52010
	magicNILFS    = 0x3434
	magicOverlay  = 0x794C7630
	magicNFS      = 0x6969
	magicSMB      = 0x517B
	magicSMB2     = 0xFE534D42
	magicCIFS     = 0xFF534D42
	magicFUSE     = 0x65735546
	magicTmpfs    = 0x01021994
	magicRamfs    = 0x858458F6
)

var magicTable = map[uint32]Info{
	magicExt4:     {"ext4", KindLocal},
	magicXFS:      {"xfs", KindLocal},
	magicBtrfs:    {"btrfs", KindCopyOnWrite},
	magicZFS:      {"zfs", KindCopyOnWrite},
	magicBcachefs: {"bcachefs", KindCopyOnWrite},
	magicF2FS:     {"f2fs", KindLogStructured},
	magicNILFS:    {"nilfs2", KindLogStructured},
	magicOverlay:  {"overlay", KindOverlay},
	magicNFS:      {"nfs", KindNetwork},
	magicSMB:      {"smb", KindNetwork},
	magicSMB2:     {"smb2", KindNetwork},
	magicCIFS:     {"cifs", KindNetwork},
	magicFUSE:     {"fuse", KindNetwork},
	magicTmpfs:    {"tmpfs", KindMemory},
	magicRamfs:    {"ramfs", KindMemory},
}

func classifyMagic(magic uint32) Info {
	if info, ok := magicTable[magic]; ok {
		return info
	}
	return Info{Name: "unknown", Kind: KindUnknown}
}
