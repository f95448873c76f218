package errors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(CodeItemNotFound, "resource not found")

	require.NotNil(t, err)
	require.Equal(t, CodeItemNotFound, err.Code())
	require.Equal(t, "resource not found", err.Message())
	require.Equal(t, ClassificationPermanent, err.Classification())
	require.Nil(t, err.Context())
	require.Nil(t, err.Unwrap())
}

func TestNew_AllErrorCodes(t *testing.T) {
	codes := []ErrorCode{
		CodeItemNotFound,
		CodeInvalidInput,
		CodeDigestMismatch,
		CodeEncodingFailed,
		CodeInvalidInput,
		CodeInvalidInput,
		CodeInvalidInput,
		CodeManifestUnreadable,
		CodeStorageFailed,
		CodeStorageFailed,
		CodeStorageFailed,
		CodeStorageFailed,
		CodeInternal,
		CodeInternal,
		CodeInternal,
		CodeInternal,
		CodeInternal,
		CodeStorageFailed,
		CodeUnknown,
	}

	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			err := New(code, "test message")
			require.Equal(t, code, err.Code())
			require.NotEmpty(t, err.Classification())
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CodeInvalidInput, "invalid value: %d (expected %d)", 5, 10)

	require.NotNil(t, err)
	require.Equal(t, CodeInvalidInput, err.Code())
	require.Equal(t, "invalid value: 5 (expected 10)", err.Message())
}

func TestNew_DefaultClassification(t *testing.T) {
	tests := []struct {
		name          string
		code          ErrorCode
		wantRetryable bool
	}{
		{"timeout is retryable", CodeStorageFailed, true},
		{"network is retryable", CodeStorageFailed, true},
		{"rate limit is retryable", CodeStorageFailed, true},
		{"unavailable is retryable", CodeStorageFailed, true},
		{"database is retryable", CodeStorageFailed, true},
		{"not found is permanent", CodeItemNotFound, false},
		{"invalid input is permanent", CodeInvalidInput, false},
		{"already exists is permanent", CodeInvalidInput, false},
		{"conflict is permanent", CodeInvalidInput, false},
		{"unauthorized is permanent", CodeInvalidInput, false},
		{"forbidden is permanent", CodeInvalidInput, false},
		{"invalid config is permanent", CodeInvalidInput, false},
		{"schema failed is permanent", CodeManifestUnreadable, false},
		{"not implemented is permanent", CodeInternal, false},
		{"execution failed is permanent", CodeInternal, false},
		{"build failed is permanent", CodeInternal, false},
		{"publish failed is permanent", CodeInternal, false},
		{"internal is permanent", CodeInternal, false},
		{"unknown is permanent", CodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "test")
			require.Equal(t, tt.wantRetryable, err.Classification().IsRetryable())
		})
	}
}
