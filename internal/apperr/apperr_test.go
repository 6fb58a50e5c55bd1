package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(NoData, "select a dataset first")
	assert.True(t, errors.Is(err, ErrNoData))
	assert.False(t, errors.Is(err, ErrBusy))

	wrapped := fmt.Errorf("forecast: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNoData))
	assert.Equal(t, NoData, KindOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap(ServiceError, "service unreachable", cause)
	assert.Equal(t, "service unreachable", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrService))

	assert.Equal(t, "dial tcp: refused", Wrap(StorageError, "", cause).Error())
	assert.Equal(t, "busy", (&Error{Kind: Busy}).Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ServiceError, KindOf(Servicef("status %d", 500)))
	assert.Equal(t, "status 500", Servicef("status %d", 500).Error())
}
