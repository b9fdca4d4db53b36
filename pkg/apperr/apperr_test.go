package apperr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_KnownAndUnknownCodes(t *testing.T) {
	assert.Equal(t, http.StatusConflict, New(CodeVersionConflict, "conflict").HTTPStatus())
	assert.Equal(t, http.StatusLocked, New(CodeAccountLocked, "locked").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New("SOMETHING_UNMAPPED", "x").HTTPStatus())
}

func TestInternal_PassesThroughExistingAppError(t *testing.T) {
	original := New(CodeOrderNotFound, "order not found")
	wrapped := Internal(original)
	assert.Same(t, original, wrapped)
}

func TestInternal_WrapsUnknownErrorAs500(t *testing.T) {
	err := Internal(errors.New("boom"))
	assert.Equal(t, CodeInternal, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestIs_MatchesByCodeNotMessage(t *testing.T) {
	err := New(CodeCartEmpty, "cart is empty")
	assert.True(t, Is(err, CodeCartEmpty))
	assert.False(t, Is(err, CodeOutOfStock))
}

func TestAs_ExtractsWrappedAppError(t *testing.T) {
	appErr := New(CodeInvalidToken, "malformed token")
	wrapped := Wrap(errors.New("inner"), CodeInvalidToken, "malformed token")

	extracted, ok := As(wrapped)
	assert.True(t, ok)
	assert.Equal(t, appErr.Code, extracted.Code)

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithFields_AttachesFieldNames(t *testing.T) {
	err := New(CodeValidationError, "invalid input").WithFields("email", "password")
	assert.Equal(t, []string{"email", "password"}, err.Fields)
}
