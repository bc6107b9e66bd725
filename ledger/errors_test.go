package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Field: "remittanceStatus", Value: "PAID", Accepted: []string{"REMITTED", "UNREMITTED"}}
	assert.Equal(t, `invalid remittanceStatus "PAID": accepted values are REMITTED, UNREMITTED`, err.Error())

	err = &ValidationError{Field: "minutes", Value: "-1", Reason: "must not be negative"}
	assert.Equal(t, `invalid minutes "-1": must not be negative`, err.Error())

	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, IsClientError(err))
	assert.False(t, IsNotFound(err))
}

func TestNotFoundHierarchy(t *testing.T) {
	for _, err := range []error{ErrUserNotFound, ErrWorkLogNotFound, ErrRemittanceNotFound} {
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, IsNotFound(err))
		assert.False(t, IsClientError(err))
	}
	assert.NotErrorIs(t, ErrUserNotFound, ErrWorkLogNotFound)
}

func TestConflictHierarchy(t *testing.T) {
	for _, err := range []error{ErrWorkLogExists, ErrSegmentExists, ErrAdjustmentExists, ErrRemittanceExists, ErrItemExists} {
		assert.ErrorIs(t, err, ErrConflict)
		assert.True(t, IsConflict(err))
		assert.False(t, IsClientError(err))
		assert.False(t, IsNotFound(err))
	}
	assert.Equal(t, "worklog already exists", ErrWorkLogExists.Error())
	assert.Equal(t, ErrRemittanceExists, Storage("create remittance", ErrRemittanceExists))
}

func TestStorage(t *testing.T) {
	assert.NoError(t, Storage("op", nil))

	cause := errors.New("database is locked")
	err := Storage("insert remittance", cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert remittance: database is locked", err.Error())

	var serr *StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "insert remittance", serr.Op)

	// Already classified errors pass through untouched.
	assert.Same(t, err, Storage("outer", err))
	assert.Equal(t, ErrWorkLogNotFound, Storage("get worklog", ErrWorkLogNotFound))
}

func TestUserFailure(t *testing.T) {
	cause := Storage("insert remittance", errors.New("disk full"))
	f := UserFailure{UserID: "u1", Err: cause}

	assert.Equal(t, "user u1: insert remittance: disk full", f.Error())
	assert.ErrorIs(t, f, ErrPartialGeneration)
	assert.ErrorIs(t, f, ErrStorage)
}

func TestParseRemittanceStatus(t *testing.T) {
	for _, s := range RemittanceStatuses {
		got, err := ParseRemittanceStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseRemittanceStatus("success")
	require.Error(t, err)
	assert.True(t, IsClientError(err))
	assert.Contains(t, err.Error(), "SUCCESS, FAILED, CANCELLED")
}

func TestTimeSegmentEarned(t *testing.T) {
	assert.Equal(t, "0.00", TimeSegment{Minutes: 0}.Earned().StringFixed(2))
	assert.Equal(t, "0.50", TimeSegment{Minutes: 1}.Earned().StringFixed(2))
	assert.Equal(t, "45.00", TimeSegment{Minutes: 90}.Earned().StringFixed(2))
}

func TestRemittedItemSettled(t *testing.T) {
	assert.True(t, RemittedItem{Status: RemittanceSuccess}.Settled())
	assert.False(t, RemittedItem{Status: RemittanceFailed}.Settled())
	assert.False(t, RemittedItem{Status: RemittanceCancelled}.Settled())
}
