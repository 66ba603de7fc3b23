package disk

import (
	"strings"
	"testing"
	"time"
)

func TestClassifyMagic(t *testing.T) {
	tests := []struct {
		magic    uint32
		name     string
		kind     Kind
		reliable bool
	}{
		{magicExt4, "ext4", KindLocal, true},
		{magicBtrfs, "btrfs", KindCopyOnWrite, false},
		{magicZFS, "zfs", KindCopyOnWrite, false},
		{magicF2FS, "f2fs", KindLogStructured, false},
		{magicOverlay, "overlay", KindOverlay, false},
		{magicNFS, "nfs", KindNetwork, false},
		{magicTmpfs, "tmpfs", KindMemory, true},
		{0xDEADBEEF, "unknown", KindUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := classifyMagic(tt.magic)
			if info.Name != tt.name || info.Kind != tt.kind {
				t.Errorf("classifyMagic(%#x) = %+v, expected %s/%s", tt.magic, info, tt.name, tt.kind)
			}
			if info.Kind.OverwriteReliable() != tt.reliable {
				t.Errorf("%s: OverwriteReliable = %v, expected %v", tt.name, !tt.reliable, tt.reliable)
			}
			if tt.reliable != (info.Warning() == "") {
				t.Errorf("%s: unexpected warning %q", tt.name, info.Warning())
			}
		})
	}
}

func TestWarningNamesFilesystem(t *testing.T) {
	w := Info{Name: "btrfs", Kind: KindCopyOnWrite}.Warning()
	if !strings.Contains(w, "btrfs") || !strings.Contains(w, "copy-on-write") {
		t.Errorf("unexpected warning: %s", w)
	}
}

func TestClassifyTempDir(t *testing.T) {
	info, err := Classify(t.TempDir())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if info.Name == "" || info.Kind == "" {
		t.Errorf("Expected populated info, got %+v", info)
	}
}

func TestIsStaleHealthyPath(t *testing.T) {
	if IsStale(t.TempDir(), time.Second) {
		t.Error("Expected local temp dir not to be stale")
	}
}
