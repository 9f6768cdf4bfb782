package installer

import (
	"errors"
	"fmt"
)

// ErrDXRenderDllNotFound is fatal on a remaster install: the render
// library the patch tables target is missing from the game copy.
var ErrDXRenderDllNotFound = errors.New("dxrender9.dll not found in game directory")

// CopyError reports a file copy that failed after all retries.
type CopyError struct {
	Src   string
	Dst   string
	Cause error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copying %s to %s: %v", e.Src, e.Dst, e.Cause)
}

func (e *CopyError) Unwrap() error { return e.Cause }

// PatchError reports a binary patch write that failed. Patches are not
// retried; any failure here aborts the install.
type PatchError struct {
	Offset int64
	Cause  error
}

func (e *PatchError) Error() string {
	return fmt.Sprintf("patching offset 0x%X: %v", e.Offset, e.Cause)
}

func (e *PatchError) Unwrap() error { return e.Cause }

// CorruptedRemasterFiles reports a missing or unreadable remaster payload
// (the legacy patch/ and libs/ directories shipped next to the
// distribution).
type CorruptedRemasterFiles struct {
	Path   string
	Reason string
}

func (e *CorruptedRemasterFiles) Error() string {
	return fmt.Sprintf("remaster files at %s are corrupted: %s", e.Path, e.Reason)
}
