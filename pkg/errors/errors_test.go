// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, and code lookup

package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/arthur-debert/envdeploy/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "lock_held",
			code:    errors.ErrLockHeld,
			message: "another deploy is running",
			wantStr: "[LOCK_HELD] another deploy is running",
		},
		{
			name:    "config_conflict",
			code:    errors.ErrConfigConflict,
			message: "both lists set",
			wantStr: "[CONFIG_CONFLICT] both lists set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}
			if err.Details == nil {
				t.Error("New() details should be initialized")
			}
			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := errors.Newf(errors.ErrModuleSync, "module %s failed at %s", "stdlib", "v1.0.0")
	if err.Message != "module stdlib failed at v1.0.0" {
		t.Errorf("Newf() message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrGit, "clone failed")

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}
		wantStr := "[GIT] clone failed: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		if err := errors.Wrap(nil, errors.ErrGit, "clone failed"); err != nil {
			t.Error("Wrap(nil) should return nil")
		}
		if err := errors.Wrapf(nil, errors.ErrGit, "clone %s failed", "x"); err != nil {
			t.Error("Wrapf(nil) should return nil")
		}
	})
}

func TestWithDetails(t *testing.T) {
	err := errors.New(errors.ErrModuleSync, "sync failed").
		WithDetail("module", "stdlib").
		WithDetails(map[string]interface{}{"origin": "forge", "environment": "production"})

	if err.Details["module"] != "stdlib" || err.Details["origin"] != "forge" || err.Details["environment"] != "production" {
		t.Errorf("unexpected details: %v", err.Details)
	}
	if got := errors.GetErrorDetails(err); got["module"] != "stdlib" {
		t.Errorf("GetErrorDetails() = %v", got)
	}
	if errors.GetErrorDetails(stderrors.New("plain")) != nil {
		t.Error("GetErrorDetails() should be nil for plain errors")
	}
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrPreload, "error 1")
	err2 := errors.New(errors.ErrPreload, "error 2")
	err3 := errors.New(errors.ErrValidate, "error 3")

	if !stderrors.Is(err1, err2) {
		t.Error("errors.Is() should match on code")
	}
	if err1.Is(err3) {
		t.Error("Is() should return false for different codes")
	}
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     errors.ErrorCode
		expected bool
	}{
		{"matching_code", errors.New(errors.ErrEnvSync, "x"), errors.ErrEnvSync, true},
		{"different_code", errors.New(errors.ErrEnvSync, "x"), errors.ErrInternal, false},
		{"wrapped_error", errors.Wrap(stderrors.New("base"), errors.ErrFileAccess, "denied"), errors.ErrFileAccess, true},
		{"standard_error", stderrors.New("standard error"), errors.ErrNotFound, false},
		{"nil_error", nil, errors.ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.IsErrorCode(tt.err, tt.code); got != tt.expected {
				t.Errorf("IsErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := errors.GetErrorCode(errors.New(errors.ErrHook, "x")); got != errors.ErrHook {
		t.Errorf("GetErrorCode() = %v", got)
	}
	if got := errors.GetErrorCode(stderrors.New("x")); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode() = %v", got)
	}
	if got := errors.GetErrorCode(nil); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode() = %v", got)
	}
}

func TestErrorChaining(t *testing.T) {
	rootCause := stderrors.New("root cause")
	gitErr := errors.Wrap(rootCause, errors.ErrGit, "fetch failed")
	syncErr := errors.Wrap(gitErr, errors.ErrEnvSync, "cannot sync environment")

	if !errors.IsErrorCode(syncErr, errors.ErrEnvSync) {
		t.Error("top level should have ErrEnvSync code")
	}

	var middle *errors.DeployError
	if stderrors.As(syncErr.Unwrap(), &middle) && middle.Code != errors.ErrGit {
		t.Error("middle error should have ErrGit code")
	}

	if !stderrors.Is(syncErr, rootCause) {
		t.Error("should find root cause with errors.Is")
	}
}
