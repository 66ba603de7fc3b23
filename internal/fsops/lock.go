package fsops

import "errors"

// ErrLocked is returned when another holder has the file locked
var ErrLocked = errors.New("file is locked by another holder")

func noopUnlock() error { return nil }
