package vfs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFsErrorMessage(t *testing.T) {
	t.Run("with path", func(t *testing.T) {
		err := NewNotFoundError("/missing")
		assert.Equal(t, "NotFound: no such file or directory (path: /missing)", err.Error())
	})

	t.Run("without path", func(t *testing.T) {
		err := NewNoRootFilesystemError()
		assert.Equal(t, "NoRootFilesystem: no root filesystem", err.Error())
	})

	t.Run("descriptor rendering", func(t *testing.T) {
		err := NewBadFileDescriptorError(7)
		assert.Contains(t, err.Error(), "fd 7")
	})
}

func TestFsErrorIs(t *testing.T) {
	err := NewExistsError("/taken")

	assert.True(t, errors.Is(err, &FsError{Code: ErrExists}))
	assert.False(t, errors.Is(err, &FsError{Code: ErrNotFound}))
	assert.False(t, errors.Is(err, errors.New("file exists")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotEmpty, CodeOf(NewNotEmptyError("/dir")))
	assert.Equal(t, ErrorCode(0), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(0), CodeOf(nil))
}

func TestErrorCodeString(t *testing.T) {
	codes := map[ErrorCode]string{
		ErrNotFound:          "NotFound",
		ErrNotDirectory:      "NotDirectory",
		ErrIsDirectory:       "IsDirectory",
		ErrExists:            "Exists",
		ErrNotEmpty:          "NotEmpty",
		ErrCrossDevice:       "CrossDevice",
		ErrBusy:              "Busy",
		ErrInvalidArgument:   "InvalidArgument",
		ErrBadFileDescriptor: "BadFileDescriptor",
		ErrTooManyLinks:      "TooManyLinks",
		ErrNoRootFilesystem:  "NoRootFilesystem",
		ErrIO:                "IO",
	}
	for code, want := range codes {
		assert.Equal(t, want, code.String())
	}
	assert.Equal(t, fmt.Sprintf("Unknown(%d)", 99), ErrorCode(99).String())
}
