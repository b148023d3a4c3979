package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestCodeAndStatus 验证错误分类到错误码与 HTTP 状态码的映射.
func TestCodeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"validation", NewValidation("file name is empty"), CodeValidation, http.StatusBadRequest},
		{"conflict", NewConflict("identical content already stored"), CodeConflict, http.StatusConflict},
		{"not found", NewNotFound("file"), CodeNotFound, http.StatusNotFound},
		{"quota", NewQuotaExceeded(LimitStorage, 2048, 1024, "storage limit exceeded"), CodeQuotaExceeded, http.StatusInsufficientStorage},
		{"file op", NewFileOperation("rename", errors.New("disk full")), CodeFileOperation, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
			if got := HTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

// TestWrappedMatching 验证包装后的错误仍能被 errors.As 识别.
func TestWrappedMatching(t *testing.T) {
	base := NewQuotaExceeded(LimitFileCount, 101, 100, "file count limit exceeded")
	wrapped := fmt.Errorf("upload rejected: %w", base)

	if !IsQuotaExceeded(wrapped) {
		t.Fatal("wrapped quota error not recognized")
	}

	var quota *QuotaExceededError
	if !errors.As(wrapped, &quota) {
		t.Fatal("errors.As failed on wrapped quota error")
	}
	if quota.Limit != LimitFileCount || quota.Attempted != 101 || quota.Allowed != 100 {
		t.Errorf("unexpected quota detail: %+v", quota)
	}
}

// TestFileOperationUnwrap 验证 FileOperationError 保留底层错误链.
func TestFileOperationUnwrap(t *testing.T) {
	cause := errors.New("permission denied")
	err := NewFileOperation("put", cause)

	if !errors.Is(err, cause) {
		t.Fatal("underlying cause lost through FileOperationError")
	}
}

// TestNotFoundMessage 验证 NotFoundError 的默认文案.
func TestNotFoundMessage(t *testing.T) {
	if got := NewNotFound("").Error(); got != "resource not found" {
		t.Errorf("empty resource message = %q", got)
	}
	if got := NewNotFound("file").Error(); got != "file not found" {
		t.Errorf("file message = %q", got)
	}
}
