package shred

import (
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"github.com/spf13/afero"

	"shred-sage/internal/pattern"
)

// applyPattern overwrites the first writeSize bytes of f with p, in chunks of
// at most blockSize bytes, then syncs so the next pass is not coalesced with
// this one. It returns the number of bytes written.
func applyPattern(f afero.File, rnd io.Reader, blockSize int, writeSize int64, p pattern.Pattern) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek: %w", err)
	}

	var scratch []byte
	if p.IsRandom() {
		scratch = make([]byte, blockSize)
		defer memguard.WipeBytes(scratch)
	}

	var written int64
	for written < writeSize {
		n := blockSize
		if rem := writeSize - written; rem < int64(n) {
			n = int(rem)
		}

		var chunk []byte
		if p.IsRandom() {
			chunk = scratch[:n]
			if _, err := io.ReadFull(rnd, chunk); err != nil {
				return written, fmt.Errorf("random source: %w", err)
			}
		} else {
			chunk = p.Chunk(n)
		}

		m, err := f.Write(chunk)
		written += int64(m)
		if err != nil {
			return written, err
		}
		if m != n {
			return written, io.ErrShortWrite
		}
	}

	if err := f.Sync(); err != nil {
		return written, fmt.Errorf("sync: %w", err)
	}
	return written, nil
}

// runPasses applies every pass of the catalog, in order, over writeSize bytes.
func (e *Engine) runPasses(f afero.File, writeSize int64) error {
	for i, p := range e.catalog.Sequence() {
		n, err := applyPattern(f, e.random, e.catalog.BlockSize(), writeSize, p)
		if err != nil {
			return fmt.Errorf("pass %d (%s): %w", i+1, p, err)
		}
		e.obs.PassWritten(n)
	}
	return nil
}
