// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"store query", errors.CodeStoreQueryFailed, "patent year aggregation failed"},
		{"validation", errors.CodeInvalidTechnology, "technology must not be empty"},
		{"rate limit", errors.CodeTooManyRequests, "too many requests"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail, "Detail should be empty for bare New()")
			assert.Nil(t, ae.Cause, "Cause should be nil for bare New()")
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.CodeInvalidYears, "years must be between %d and %d", 3, 30)
	require.NotNil(t, ae)
	assert.Equal(t, "years must be between 3 and 30", ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	result := errors.Wrap(nil, errors.CodeInternal, "should not matter")
	assert.Nil(t, result)
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	base := stderrors.New("disk full")
	wrapped := errors.Wrap(base, errors.CodeStoreQueryFailed, "query failed")
	require.NotNil(t, wrapped)

	assert.Equal(t, errors.CodeStoreQueryFailed, wrapped.Code)
	assert.True(t, stderrors.Is(wrapped, base), "errors.Is must traverse the chain")
	assert.Equal(t, base, wrapped.Unwrap())
}

func TestWrap_UnknownCodePreservesOriginalClassification(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeAPIAuthFailed, "token rejected")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context only")

	require.NotNil(t, outer)
	assert.Equal(t, errors.CodeAPIAuthFailed, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error() formatting and builders
// ─────────────────────────────────────────────────────────────────────────────

func TestError_FormatWithAndWithoutDetail(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeValidation, "bad request")
	assert.Equal(t, "[COMMON_003] bad request", ae.Error())

	withDetail := ae.WithDetail("field=technology")
	assert.Equal(t, "[COMMON_003] bad request: field=technology", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWithCause_AttachesWithoutMutation(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("boom")
	base := errors.Internal("orchestrator failed")
	attached := base.WithCause(cause)

	assert.Nil(t, base.Cause)
	require.NotNil(t, attached)
	assert.True(t, stderrors.Is(attached, cause))
}

func TestWithDetail_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(fmt.Errorf("y")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_TraversesWrappedChains(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeStoreUnavailable, "patents.db missing")
	middle := fmt.Errorf("opening store: %w", inner)
	outer := errors.Wrap(middle, errors.CodeInternal, "startup failed")

	assert.True(t, errors.IsCode(outer, errors.CodeStoreUnavailable))
	assert.True(t, errors.IsCode(outer, errors.CodeInternal))
	assert.False(t, errors.IsCode(outer, errors.CodeNotFound))
}

func TestGetCode_Sentinels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeTimeout, errors.GetCode(errors.Timeout("deadline")))
}

func TestIsValidation_CoversRequestFieldCodes(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsValidation(errors.Validation("generic")))
	assert.True(t, errors.IsValidation(errors.New(errors.CodeInvalidTechnology, "empty")))
	assert.True(t, errors.IsValidation(errors.New(errors.CodeInvalidYears, "range")))
	assert.False(t, errors.IsValidation(errors.NotFound("nope")))
}

func TestIsUnavailable_CoversStoreAndBreaker(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsUnavailable(errors.Unavailable("down")))
	assert.True(t, errors.IsUnavailable(errors.New(errors.CodeStoreUnavailable, "missing file")))
	assert.True(t, errors.IsUnavailable(errors.New(errors.CodeAPICircuitOpen, "breaker open")))
	assert.False(t, errors.IsUnavailable(errors.Internal("other")))
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTP status mapping
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPStatus_KnownCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
	}{
		{errors.New(errors.CodeInvalidTechnology, "x"), http.StatusUnprocessableEntity},
		{errors.New(errors.CodeInvalidYears, "x"), http.StatusUnprocessableEntity},
		{errors.Validation("x"), http.StatusUnprocessableEntity},
		{errors.NotFound("x"), http.StatusNotFound},
		{errors.RateLimited("x"), http.StatusTooManyRequests},
		{errors.New(errors.CodeStoreUnavailable, "x"), http.StatusServiceUnavailable},
		{errors.New(errors.CodeAPIRequestFailed, "x"), http.StatusBadGateway},
		{errors.Internal("x"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, errors.HTTPStatus(tc.err), "code %s", errors.GetCode(tc.err))
	}
}

func TestHTTPStatus_UnknownDefaultsTo500(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusInternalServerError, errors.HTTPStatus(stderrors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, errors.ErrorCodeHTTPStatus(errors.ErrorCode("BOGUS_999")))
}
