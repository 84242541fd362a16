package pass

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDescriptor is returned when the pass directory has no pass.json.
	ErrMissingDescriptor = errors.New("pass descriptor is missing")
	// ErrDirectoryNotFound is returned when the pass directory does not exist or is not a directory.
	ErrDirectoryNotFound = errors.New("pass directory not found")
	// ErrUnreadableFile is returned when any asset cannot be read.
	ErrUnreadableFile = errors.New("unreadable file")
	// ErrDuplicateAsset is returned when two assets map to the same archive entry name.
	ErrDuplicateAsset = errors.New("duplicate asset name")
	// ErrBadCredentials is returned when the identity bundle cannot be decoded with the passphrase.
	ErrBadCredentials = errors.New("bad signing credentials")
	// ErrSignatureEncoding is returned when the produced signature is not a valid detached PKCS#7 blob.
	ErrSignatureEncoding = errors.New("signature encoding error")
	// ErrArchiveWrite is returned when the archive cannot be assembled or written.
	ErrArchiveWrite = errors.New("archive write failure")
)

// Stage names the pipeline step that failed.
type Stage string

// Pipeline stages in execution order.
const (
	StageCollect  Stage = "collect"
	StageManifest Stage = "manifest"
	StageSign     Stage = "sign"
	StageArchive  Stage = "archive"
	StageWrite    Stage = "write"
)

// StageError reports which stage of the packaging pipeline failed and why.
type StageError struct {
	// Stage is the failed pipeline step.
	Stage Stage
	// Err is the underlying cause, wrapping one of the sentinel errors.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap exposes the cause for errors.Is and errors.As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// AtStage wraps err into a StageError unless it is nil.
func AtStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}

	return &StageError{Stage: stage, Err: err}
}
