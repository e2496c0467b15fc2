package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRoundTrip(t *testing.T) {
	for _, se := range statusErrors {
		t.Run(se.err.Error(), func(t *testing.T) {
			assert.Equal(t, se.err, se.status.Err())

			wrapped := fmt.Errorf("%w: node 7", se.err)
			assert.Equal(t, se.status, StatusOf(wrapped))
		})
	}
}

func TestStatusCodes(t *testing.T) {
	assert.Equal(t, 0, int(StatusSuccess))
	assert.Equal(t, -1, int(StatusNoPath))
	assert.Equal(t, -9, int(StatusNoProjection))
	assert.Equal(t, -11, int(StatusGraphChangedTooOften))
	assert.Equal(t, -12, int(StatusStartGoalSame))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Contains(t, StatusGraphChangedTooOften.String(), ">3 retries")
	assert.Equal(t, "unknown status 42", Status(42).String())
	assert.NoError(t, StatusSuccess.Err())
	assert.Equal(t, StatusSuccess, StatusOf(nil))
}

func TestHandle(t *testing.T) {
	assert.False(t, InvalidHandle.IsValid())
	assert.True(t, Handle{ID: 0}.IsValid())
	assert.Equal(t, uint32(4294967295), InvalidID)
}
