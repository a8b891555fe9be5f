package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestSyncErrorFormat(t *testing.T) {
	tests := []struct {
		name     string
		err      *SyncError
		wantErr  string
		wantUser string
	}{
		{
			name:     "what only",
			err:      &SyncError{What: "something broke"},
			wantErr:  "something broke",
			wantUser: "Error: something broke",
		},
		{
			name:     "what and why",
			err:      &SyncError{What: "something broke", Why: "bad input"},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input",
		},
		{
			name: "full error",
			err: &SyncError{
				What: "something broke",
				Why:  "bad input",
				Fix:  "try again",
			},
			wantErr:  "something broke: bad input",
			wantUser: "Error: something broke\n\nWhy: bad input\n\nFix: try again",
		},
		{
			name: "with cause",
			err: &SyncError{
				What:  "something broke",
				Cause: errors.New("underlying error"),
			},
			wantErr:  "something broke: underlying error",
			wantUser: "Error: something broke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantErr {
				t.Errorf("Error() = %q, want %q", got, tt.wantErr)
			}
			if got := tt.err.UserMessage(); got != tt.wantUser {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantUser)
			}
		})
	}
}

func TestSyncErrorJSON(t *testing.T) {
	err := &SyncError{
		Code:  CodeTaskNotFound,
		What:  "task abc not found",
		Why:   "No task with this ID is known",
		Cause: errors.New("sql: no rows in result set"),
	}

	data, marshalErr := json.Marshal(err)
	if marshalErr != nil {
		t.Fatalf("MarshalJSON failed: %v", marshalErr)
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if result["code"] != string(CodeTaskNotFound) {
		t.Errorf("code = %v, want %v", result["code"], CodeTaskNotFound)
	}
	if result["cause"] != "sql: no rows in result set" {
		t.Errorf("cause = %v", result["cause"])
	}
}

func TestIsNotAvailable(t *testing.T) {
	base := ErrDataNotAvailable("remote")
	wrapped := fmt.Errorf("list tasks: %w", base.WithCause(errors.New("connection refused")))

	if !IsNotAvailable(base) {
		t.Error("IsNotAvailable(base) = false, want true")
	}
	if !IsNotAvailable(wrapped) {
		t.Error("IsNotAvailable(wrapped) = false, want true")
	}
	if IsNotAvailable(ErrTaskNotFound("x")) {
		t.Error("IsNotAvailable(task not found) = true, want false")
	}
	if IsNotAvailable(nil) {
		t.Error("IsNotAvailable(nil) = true, want false")
	}
}

func TestIsTaskNotFound(t *testing.T) {
	if !IsTaskNotFound(fmt.Errorf("complete: %w", ErrTaskNotFound("t1"))) {
		t.Error("IsTaskNotFound(wrapped) = false, want true")
	}
	if IsTaskNotFound(ErrDataNotAvailable("local")) {
		t.Error("IsTaskNotFound(not available) = true, want false")
	}
}

func TestWriteFailedKeepsJoinedCauses(t *testing.T) {
	remoteErr := errors.New("remote down")
	localErr := errors.New("disk full")
	err := ErrWriteFailed("save task", errors.Join(remoteErr, localErr))

	if err.Code != CodeWriteFailed {
		t.Errorf("Code = %v, want %v", err.Code, CodeWriteFailed)
	}
	if !errors.Is(err, remoteErr) || !errors.Is(err, localErr) {
		t.Error("joined causes should be reachable via errors.Is")
	}
}

func TestAsSyncError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", ErrConfigInvalid("remote.driver", "unknown driver"))

	got := AsSyncError(wrapped)
	if got == nil {
		t.Fatal("AsSyncError returned nil")
	}
	if got.Code != CodeConfigInvalid {
		t.Errorf("Code = %v, want %v", got.Code, CodeConfigInvalid)
	}
	if AsSyncError(errors.New("plain")) != nil {
		t.Error("AsSyncError(plain) should be nil")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *SyncError
		want int
	}{
		{ErrTaskNotFound("x"), 404},
		{ErrDataNotAvailable("remote"), 503},
		{ErrConfigInvalid("a", "b"), 400},
		{ErrAlreadyInitialized("/tmp"), 409},
		{ErrWriteFailed("save", nil), 500},
		{Wrap(errors.New("x"), "unknown"), 500},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if got := tt.err.HTTPStatus(); got != tt.want {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
