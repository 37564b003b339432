package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found")
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeRecognitionFailure, "recognizer down")
	if !err.Retryable {
		t.Error("RECOGNITION_FAILURE should be retryable")
	}
}

func TestAppError_SourceUnreadable(t *testing.T) {
	cause := fmt.Errorf("invalid data found when processing input")
	err := SourceUnreadable("talk.mp3", cause)
	if err.Code != ErrCodeSourceUnreadable {
		t.Errorf("expected SOURCE_UNREADABLE, got %s", err.Code)
	}
	if err.Details["source"] != "talk.mp3" {
		t.Errorf("expected source=talk.mp3, got %v", err.Details["source"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
	if err.Retryable {
		t.Error("SourceUnreadable should not be retryable")
	}
}

func TestAppError_IOFailure(t *testing.T) {
	err := IOFailure("mkdir", "/scratch/a", fmt.Errorf("permission denied"))
	if err.Details["operation"] != "mkdir" {
		t.Errorf("expected operation=mkdir, got %v", err.Details["operation"])
	}
	if err.Details["path"] != "/scratch/a" {
		t.Errorf("expected path=/scratch/a, got %v", err.Details["path"])
	}
	if !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAppError_OutOfOrderInput(t *testing.T) {
	err := OutOfOrderInput("shalom", "3", "4.5")
	if err.Code != ErrCodeOutOfOrderInput {
		t.Errorf("expected OUT_OF_ORDER_INPUT, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "shalom") {
		t.Errorf("expected word in message, got %q", err.Message)
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	root := fmt.Errorf("root cause")
	err := Internal(nil).WithCause(root)
	if !stderrors.Is(err, root) {
		t.Error("expected errors.Is to find root cause")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := InvalidInput("bucket_width", "must be positive")
	err.WithDetails(map[string]any{"value": 0, "field": "width"})

	if err.Details["value"] != 0 {
		t.Errorf("expected value=0, got %v", err.Details["value"])
	}
	if err.Details["field"] != "width" {
		t.Errorf("expected merged field to override, got %v", err.Details["field"])
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := OffsetMismatch("segment 2 offset drifted")
	if err.Details != nil {
		t.Fatal("expected nil details before WithDetail")
	}
	err.WithDetail("segment", 2)
	if err.Details["segment"] != 2 {
		t.Errorf("expected segment=2, got %v", err.Details["segment"])
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := New(ErrCodeOffsetMismatch, "sum differs")
	if got := err.Error(); got != "OFFSET_MISMATCH: sum differs" {
		t.Errorf("unexpected format: %q", got)
	}

	withCause := New(ErrCodeIOFailure, "write").WithCause(fmt.Errorf("disk full"))
	if got := withCause.Error(); got != "IO_FAILURE: write (cause: disk full)" {
		t.Errorf("unexpected format: %q", got)
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		code      ErrorCode
		retryable bool
	}{
		{"SourceUnreadable", SourceUnreadable("a.mp3", nil), ErrCodeSourceUnreadable, false},
		{"IOFailure", IOFailure("write", "out.txt", nil), ErrCodeIOFailure, false},
		{"RecognitionFailure", RecognitionFailure("a_segment_1.mp3", nil), ErrCodeRecognitionFailure, true},
		{"OutOfOrderInput", OutOfOrderInput("w", "1", "2"), ErrCodeOutOfOrderInput, false},
		{"OffsetMismatch", OffsetMismatch("drift"), ErrCodeOffsetMismatch, false},
		{"InvalidInput", InvalidInput("x", "bad"), ErrCodeInvalidInput, false},
		{"Validation", Validation("bad input"), ErrCodeInvalidInput, false},
		{"NotFound", NotFound("run", "1"), ErrCodeNotFound, false},
		{"Timeout", Timeout("recognize"), ErrCodeTimeout, true},
		{"DatabaseError", DatabaseError(nil), ErrCodeDatabaseError, true},
		{"Internal", Internal(nil), ErrCodeInternal, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected code %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.Retryable != tc.retryable {
				t.Errorf("expected retryable=%v, got %v", tc.retryable, tc.err.Retryable)
			}
		})
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	retryable := []ErrorCode{ErrCodeRecognitionFailure, ErrCodeTimeout, ErrCodeDatabaseError}
	for _, code := range retryable {
		if !IsRetryableCode(code) {
			t.Errorf("expected %s to be retryable", code)
		}
	}

	nonRetryable := []ErrorCode{ErrCodeSourceUnreadable, ErrCodeIOFailure, ErrCodeOutOfOrderInput, ErrCodeOffsetMismatch, ErrCodeInvalidInput, ErrCodeInternal}
	for _, code := range nonRetryable {
		if IsRetryableCode(code) {
			t.Errorf("expected %s to NOT be retryable", code)
		}
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	appErr := Internal(nil)
	wrapped := fmt.Errorf("wrap: %w", appErr)

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}

	if _, ok := AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("outer: %w", OffsetMismatch("x"))); got != ErrCodeOffsetMismatch {
		t.Errorf("expected OFFSET_MISMATCH, got %s", got)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR for plain error, got %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("wrapped: %w", RecognitionFailure("s", nil))) {
		t.Error("expected wrapped recognition failure to be retryable")
	}
	if IsRetryable(OutOfOrderInput("w", "1", "2")) {
		t.Error("expected out-of-order input to be terminal")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("expected plain error to be terminal")
	}
	if !HasCode(IOFailure("write", "x", nil), ErrCodeIOFailure) {
		t.Error("expected HasCode to match IO_FAILURE")
	}
}
