package commute_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/kaiyuhsu/commutebot/internal/commute"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		code    string
		want    commute.Mode
		wantErr bool
	}{
		{code: "1", want: commute.ModeTransit},
		{code: "2", want: commute.ModeDriving},
		{code: "3", want: commute.ModeWalking},
		{code: "4", want: commute.ModeBicycling},
		{code: "5", wantErr: true},
		{code: "0", wantErr: true},
		{code: "", wantErr: true},
		{code: "driving", wantErr: true},
		{code: "１", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%q", tt.code), func(t *testing.T) {
			got, err := commute.ParseMode(tt.code)
			if tt.wantErr {
				var formatErr *commute.InputFormatError
				if !errors.As(err, &formatErr) {
					t.Fatalf("expected InputFormatError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestModeAPIValue(t *testing.T) {
	tests := map[commute.Mode]string{
		commute.ModeTransit:   "transit",
		commute.ModeDriving:   "driving",
		commute.ModeWalking:   "walking",
		commute.ModeBicycling: "bicycling",
	}

	for mode, want := range tests {
		if got := mode.APIValue(); got != want {
			t.Errorf("%v.APIValue() = %q, want %q", mode, got, want)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	if !commute.IsRecoverable(&commute.InputFormatError{Field: "mode", Value: "9"}) {
		t.Error("InputFormatError should be recoverable")
	}
	if !commute.IsRecoverable(&commute.PastTimeError{Value: "2020-01-01"}) {
		t.Error("PastTimeError should be recoverable")
	}
	if commute.IsRecoverable(&commute.ExternalAPIError{Status: "NOT_FOUND"}) {
		t.Error("ExternalAPIError should not be recoverable")
	}
	if commute.IsRecoverable(&commute.UnavailableError{Err: errors.New("timeout")}) {
		t.Error("UnavailableError should not be recoverable")
	}
}
