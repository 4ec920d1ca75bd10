package wiretap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	cause := errors.New("socket closed")
	err := NewError(ErrNodeAccess, "Failed to load children from node path", "mars:IFFFS/stonefs", cause)

	assert.Equal(t, "Failed to load children from node path: mars:IFFFS/stonefs: socket closed", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestError_DefaultMessageIsCode(t *testing.T) {
	err := &Error{Code: ErrEmptyRange}
	assert.Equal(t, "EmptyRangeError", err.Error())
}

func TestIsCode(t *testing.T) {
	base := Errorf(ErrInvalidHostname, "venus:IFFFS", "Invalid hostname")
	wrapped := fmt.Errorf("connect: %w", base)

	assert.True(t, IsCode(wrapped, ErrInvalidHostname))
	assert.False(t, IsCode(wrapped, ErrConnection))
	assert.False(t, IsCode(errors.New("plain"), ErrConnection))
	assert.False(t, IsCode(nil, ErrConnection))
}

func TestPartialCleanupError(t *testing.T) {
	err := &PartialCleanupError{
		Parent: "/stonefs/proj/1a2b",
		Name:   "shot_010",
		Failed: []CleanupFailure{{NodeID: "/stonefs/proj/1a2b/ff00", Err: errors.New("locked")}},
	}

	var target error = fmt.Errorf("transfer: %w", err)
	assert.True(t, IsCode(target, ErrPartialCleanup))
	assert.Equal(t, []string{"/stonefs/proj/1a2b/ff00"}, err.NodeIDs())
	assert.Contains(t, err.Error(), `"shot_010"`)

	var pce *PartialCleanupError
	require.ErrorAs(t, target, &pce)
	assert.Len(t, pce.Failed, 1)
}
