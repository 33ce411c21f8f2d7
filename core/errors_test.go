package core_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xRadioAc7iv/bitcaskdb/core"
)

func TestErrorMatchesKind(t *testing.T) {
	err := &core.Error{Kind: core.KindIO, Op: "open", Path: "/data", Err: fs.ErrPermission}

	assert.ErrorIs(t, err, core.ErrIO)
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.NotErrorIs(t, err, core.ErrCorrupted)
	assert.NotErrorIs(t, err, &core.Error{Kind: core.KindIO, Op: "open"})

	assert.Equal(t, "bitcask: open /data: i/o error: permission denied", err.Error())
}

func TestErrorWithoutCause(t *testing.T) {
	err := error(&core.Error{Kind: core.KindClosed, Op: "get"})

	assert.True(t, errors.Is(err, core.ErrClosed))
	assert.Equal(t, "bitcask: get: datastore is closed", err.Error())
	assert.Equal(t, "bitcask: datastore is read-only", core.ErrReadOnly.Error())
}
