package apperr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

func TestValidationHelpersSetKind(t *testing.T) {
	cases := []struct {
		err  *apperr.Error
		kind apperr.Kind
	}{
		{apperr.Validation("bad %s", "input"), apperr.KindValidation},
		{apperr.NotFound("missing %s", "id"), apperr.KindNotFound},
		{apperr.Conflict("already %s", "running"), apperr.KindConflict},
		{apperr.Dependency("down: %s", "redis"), apperr.KindDependency},
	}
	for _, c := range cases {
		assert.Equal(t, c.kind, c.err.Kind)
	}
}

func TestInternalWrapsCauseAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := apperr.Internal(cause, "loading %s", "config")

	assert.Equal(t, apperr.KindInternal, err.Kind)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}

func TestErrorStringOmitsCauseWhenAbsent(t *testing.T) {
	err := apperr.NotFound("stock %q", "600519")
	assert.Equal(t, `not_found: stock "600519"`, err.Error())
}

func TestWithDetailsAttachesAndChains(t *testing.T) {
	err := apperr.Validation("bad input").WithDetails([]string{"field x required"})
	assert.Equal(t, []string{"field x required"}, err.Details)
}

func TestAsExtractsAppError(t *testing.T) {
	var err error = apperr.NotFound("not here")
	ae, ok := apperr.As(err)
	require := assert.New(t)
	require.True(ok)
	require.Equal(apperr.KindNotFound, ae.Kind)

	_, ok = apperr.As(errors.New("plain"))
	assert.False(t, ok)
}
