package fs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "path not found: /x", NotFoundError("stat", "/x").Error())
	assert.Equal(t, "permission denied: /x", PermissionError("remove", "/x").Error())
	assert.Equal(t, "invalid path /x: bad name", InvalidPathError("mkdir", "/x", "bad name").Error())
	assert.Equal(t, "refused", PreconditionError("delete", "refused").Error())
	assert.Contains(t, IOError("read", "/x", io.ErrUnexpectedEOF).Error(), "io error for /x")
	assert.Contains(t, UnavailableError("connect", "network", io.EOF).Error(), "backend unavailable: network")
}

func TestErrorKindPredicates(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundError("stat", "/x")))
	assert.False(t, IsNotFound(PermissionError("stat", "/x")))
	assert.True(t, IsPermission(PermissionError("stat", "/x")))
	assert.True(t, IsPrecondition(PreconditionError("delete", "no")))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestErrorKindOfForeignErrorIsIO(t *testing.T) {
	assert.Equal(t, KindIO, ErrorKindOf(errors.New("plain")))
	assert.Equal(t, KindNotFound, ErrorKindOf(NotFoundError("stat", "/x")))
}

func TestErrorUnwrapExposesCause(t *testing.T) {
	err := IOError("read", "/x", io.ErrClosedPipe)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))
}
