package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewFetch("cvs", "page fetch failed", underlying)

	assert.Equal(t, ErrorTypeFetch, err.Type)
	assert.Equal(t, "cvs", err.SourceID)
	assert.Contains(t, err.Error(), "fetch-error")
	assert.Contains(t, err.Error(), "cvs")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, underlying)

	// Without an underlying error the message stands alone
	bare := NewConfiguration("missing api key", nil)
	assert.Contains(t, bare.Error(), "missing api key")
	assert.Nil(t, bare.Unwrap())
}

func TestReason(t *testing.T) {
	assert.Equal(t, "render-timeout", Reason(NewRenderTimeout("cvs", "wait timed out", nil)))
	assert.Equal(t, "malformed-response", Reason(NewMalformed("shopping", "not json", nil)))

	// Wrapped typed errors still report their type
	wrapped := fmt.Errorf("scrape: %w", NewFetch("cvs", "boom", nil))
	assert.Equal(t, "fetch-error", Reason(wrapped))

	// Bare deadline errors count as render timeouts
	assert.Equal(t, "render-timeout", Reason(context.DeadlineExceeded))

	// Anything else falls back to the message
	assert.Equal(t, "plain failure", Reason(errors.New("plain failure")))
}
