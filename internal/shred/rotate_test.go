package shred

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shred-sage/internal/fsops"
)

var rotatedName = regexp.MustCompile(`^[0-9a-f]{32}\.[a-z0-9]+$`)

func TestRotatePreservesContent(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/spool/secret.txt", []byte("payload"), 0o600))

	r := NewRotator(fs, rand.Reader, 0, nil)
	got, err := r.Rotate("/spool/secret.txt")
	require.NoError(t, err)

	assert.Equal(t, "/spool", filepath.Dir(got))
	assert.Regexp(t, rotatedName, filepath.Base(got))

	data, err := afero.ReadFile(fs, got)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	exists, _ := afero.Exists(fs, "/spool/secret.txt")
	assert.False(t, exists)

	entries, err := afero.ReadDir(fs, "/spool")
	require.NoError(t, err)
	require.Len(t, entries, 1, "intermediate names left behind")
	assert.Equal(t, filepath.Base(got), entries[0].Name())
}

func TestRotateRenamesCountTimes(t *testing.T) {
	rfs := fsops.NewRecordingFs(nil)
	require.NoError(t, afero.WriteFile(rfs.Fs, "/d/f", []byte("x"), 0o600))

	got, err := NewRotator(rfs, rand.Reader, 5, nil).Rotate("/d/f")
	require.NoError(t, err)

	renames := rfs.Filter("rename")
	require.Len(t, renames, 5)
	assert.Equal(t, "/d/f", renames[0].Path)
	for i := 1; i < len(renames); i++ {
		assert.Equal(t, renames[i-1].To, renames[i].Path, "renames must chain")
	}
	assert.Equal(t, renames[4].To, got)
}

func TestRandomNameIsDeterministicForSource(t *testing.T) {
	var buf [20]byte
	for i := 0; i < 16; i++ {
		buf[i] = byte(i)
	}
	binary.LittleEndian.PutUint32(buf[16:], uint32(len(DefaultExtensions)+5))

	r := NewRotator(afero.NewMemMapFs(), bytes.NewReader(buf[:]), 1, nil)
	name, err := r.randomName()
	require.NoError(t, err)
	assert.Equal(t, "000102030405060708090a0b0c0d0e0f"+DefaultExtensions[5], name)
}

func TestRotateCustomExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/f", nil, 0o600))

	got, err := NewRotator(fs, rand.Reader, 1, []string{".bin"}).Rotate("/f")
	require.NoError(t, err)
	assert.Equal(t, ".bin", filepath.Ext(got))
}

func TestRotateMissingPath(t *testing.T) {
	got, err := NewRotator(afero.NewMemMapFs(), rand.Reader, 0, nil).Rotate("/nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "/nope", got)
	assert.Equal(t, "rotate", OpOf(err))
}

func TestRotateReturnsLastKnownName(t *testing.T) {
	rfs := fsops.NewRecordingFs(nil)
	require.NoError(t, afero.WriteFile(rfs.Fs, "/f", []byte("x"), 0o600))

	n := 0
	rfs.Fail = func(ev fsops.Event) error {
		if ev.Op == "rename" {
			n++
			if n == 2 {
				return assert.AnError
			}
		}
		return nil
	}

	got, err := NewRotator(rfs, rand.Reader, 3, nil).Rotate("/f")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	renames := rfs.Filter("rename")
	require.Len(t, renames, 1)
	assert.Equal(t, renames[0].To, got)

	exists, _ := afero.Exists(rfs.Fs, got)
	assert.True(t, exists)
}

func TestRotateRandomSourceFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/f", nil, 0o600))

	got, err := NewRotator(fs, bytes.NewReader(nil), 1, nil).Rotate("/f")
	assert.Error(t, err)
	assert.Equal(t, "/f", got)
}
