package fsops

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// Event is a single filesystem call observed by RecordingFs
type Event struct {
	Op   string // open, write, seek, sync, truncate, close, rename, remove, removeall
	Path string
	To   string // rename destination
	N    int64  // bytes written, seek offset or truncate size
}

func (e Event) String() string {
	switch e.Op {
	case "rename":
		return fmt.Sprintf("rename:%s->%s", e.Path, e.To)
	case "write", "seek", "truncate":
		return fmt.Sprintf("%s:%s:%d", e.Op, e.Path, e.N)
	default:
		return e.Op + ":" + e.Path
	}
}

// RecordingFs implements FS for testing.
// Wraps another filesystem and records every mutating call so tests can
// assert exact write sizes, pass ordering and the absence of mutations.
type RecordingFs struct {
	afero.Fs

	// Fail, when set, is consulted before each recorded call; a non-nil
	// return aborts the call with that error.
	Fail func(ev Event) error

	mu     sync.Mutex
	events []Event
}

// NewRecordingFs wraps base. A nil base gets an in-memory filesystem.
func NewRecordingFs(base afero.Fs) *RecordingFs {
	if base == nil {
		base = afero.NewMemMapFs()
	}
	return &RecordingFs{Fs: base}
}

func (r *RecordingFs) record(ev Event) error {
	if r.Fail != nil {
		if err := r.Fail(ev); err != nil {
			return err
		}
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far
func (r *RecordingFs) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns recorded events with the given op
func (r *RecordingFs) Filter(op string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Op == op {
			out = append(out, ev)
		}
	}
	return out
}

// Mutations counts recorded calls that change filesystem state
func (r *RecordingFs) Mutations() int {
	n := 0
	for _, ev := range r.Events() {
		switch ev.Op {
		case "write", "truncate", "rename", "remove", "removeall":
			n++
		}
	}
	return n
}

// Reset discards recorded events
func (r *RecordingFs) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *RecordingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if err := r.record(Event{Op: "open", Path: name}); err != nil {
		return nil, err
	}
	f, err := r.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &recordingFile{File: f, fs: r, path: name}, nil
}

func (r *RecordingFs) Open(name string) (afero.File, error) {
	return r.OpenFile(name, os.O_RDONLY, 0)
}

func (r *RecordingFs) Create(name string) (afero.File, error) {
	return r.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (r *RecordingFs) Rename(oldname, newname string) error {
	if err := r.record(Event{Op: "rename", Path: oldname, To: newname}); err != nil {
		return err
	}
	return r.Fs.Rename(oldname, newname)
}

func (r *RecordingFs) Remove(name string) error {
	if err := r.record(Event{Op: "remove", Path: name}); err != nil {
		return err
	}
	return r.Fs.Remove(name)
}

func (r *RecordingFs) RemoveAll(path string) error {
	if err := r.record(Event{Op: "removeall", Path: path}); err != nil {
		return err
	}
	return r.Fs.RemoveAll(path)
}

// LstatIfPossible forwards to the wrapped filesystem so walks and
// existence checks keep their no-follow semantics.
func (r *RecordingFs) LstatIfPossible(name string) (os.FileInfo, bool, error) {
	if l, ok := r.Fs.(afero.Lstater); ok {
		return l.LstatIfPossible(name)
	}
	fi, err := r.Fs.Stat(name)
	return fi, false, err
}

type recordingFile struct {
	afero.File
	fs   *RecordingFs
	path string
}

func (f *recordingFile) Write(p []byte) (int, error) {
	if err := f.fs.record(Event{Op: "write", Path: f.path, N: int64(len(p))}); err != nil {
		return 0, err
	}
	return f.File.Write(p)
}

func (f *recordingFile) WriteAt(p []byte, off int64) (int, error) {
	if err := f.fs.record(Event{Op: "write", Path: f.path, N: int64(len(p))}); err != nil {
		return 0, err
	}
	return f.File.WriteAt(p, off)
}

func (f *recordingFile) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

func (f *recordingFile) Seek(offset int64, whence int) (int64, error) {
	if err := f.fs.record(Event{Op: "seek", Path: f.path, N: offset}); err != nil {
		return 0, err
	}
	return f.File.Seek(offset, whence)
}

func (f *recordingFile) Sync() error {
	if err := f.fs.record(Event{Op: "sync", Path: f.path}); err != nil {
		return err
	}
	return f.File.Sync()
}

func (f *recordingFile) Truncate(size int64) error {
	if err := f.fs.record(Event{Op: "truncate", Path: f.path, N: size}); err != nil {
		return err
	}
	return f.File.Truncate(size)
}

func (f *recordingFile) Close() error {
	if err := f.fs.record(Event{Op: "close", Path: f.path}); err != nil {
		return err
	}
	return f.File.Close()
}
