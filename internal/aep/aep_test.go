package aep

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aepbridge/internal/call"
)

func TestFail(t *testing.T) {
	err := Fail("AEPCore.getPrivacyStatus", ErrCallbackTimeout)
	var ce *call.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, call.KindVendor, ce.Kind)
	assert.Equal(t, "general.callback.timeout", ce.Code)
	assert.Equal(t, "AEPCore.getPrivacyStatus returned an unexpected error: general.callback.timeout", ce.Message)

	assert.NoError(t, Fail("x", nil))

	plain := Fail("AEPCore.x", errors.New("boom"))
	assert.True(t, call.IsVendor(plain))
}

func TestErrorByName(t *testing.T) {
	assert.Same(t, ErrNetworkError, ErrorByName("general.network.error"))
	custom := ErrorByName("optimize.timeout")
	assert.Equal(t, "optimize.timeout", custom.Name)
	assert.Equal(t, 0, custom.Code)
}
