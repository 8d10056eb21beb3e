package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDetailDoesNotMutateSharedValue(t *testing.T) {
	e := ErrProposalNotFound.WithDetail("acme-1")

	assert.Equal(t, "acme-1", e.Detail)
	assert.Empty(t, ErrProposalNotFound.Detail)
	assert.True(t, stderrors.Is(e, ErrProposalNotFound))
}

func TestAsAppErrorThroughWrapChain(t *testing.T) {
	inner := ErrIngestionFailed.WithError(fmt.Errorf("timeout"))
	wrapped := fmt.Errorf("fetch: %w", inner)

	assert.True(t, IsAppError(wrapped))
	got := AsAppError(wrapped)
	assert.Equal(t, CodeIngestionFailed, got.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, got.HTTPStatus)

	unknown := AsAppError(stderrors.New("plain"))
	assert.Equal(t, CodeUnknown, unknown.Code)
	assert.Equal(t, http.StatusInternalServerError, unknown.HTTPStatus)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[1004] resource not found", ErrNotFound.Error())
	assert.Equal(t, "[5004] storage error: disk full", ErrStorage.WithError(stderrors.New("disk full")).Error())
}
