package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"property_recommend/models"
	"property_recommend/repository"
)

func TestDeduplicateSlice(t *testing.T) {
	got := DeduplicateSlice([]string{" a", "b", "a ", "", "c", "b"})
	want := []string{"a", "b", "c"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := DeduplicateSlice(nil); got == nil || len(got) != 0 {
		t.Errorf("nil input = %#v, want empty slice", got)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("boom"), false},
		{repository.ErrProfileNotFound, true},
		{fmt.Errorf("load: %w", repository.ErrCacheMiss), true},
	}
	for _, tt := range tests {
		if got := IsNotFound(tt.err); got != tt.want {
			t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid cid", repository.ErrInvalidCID, models.CodeInvalidParams},
		{"not found", repository.ErrProfileNotFound, models.CodeNoUserProfile},
		{"other", errors.New("db down"), models.CodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, models.CodeNoUserProfile)
			if got := decodeResponse(t, rec).Code; got != tt.want {
				t.Errorf("code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		ok         bool
	}{
		{"valid", `{"property_id":"p1"}`, false, true},
		{"missing required", `{}`, false, false},
		{"malformed", `{"property_id":`, false, false},
		{"empty body not allowed", ``, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			var body models.RecordViewRequest
			if got := DecodeJSON(rec, req, &body, tt.allowEmpty); got != tt.ok {
				t.Fatalf("DecodeJSON = %v, want %v (%s)", got, tt.ok, rec.Body.String())
			}
			if !tt.ok && decodeResponse(t, rec).Code != models.CodeInvalidParams {
				t.Errorf("unexpected response %s", rec.Body.String())
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var score models.ScoreRequest
	if !DecodeJSON(httptest.NewRecorder(), req, &score, true) {
		t.Error("empty body should be accepted when allowed")
	}
}

func TestValidateCID(t *testing.T) {
	rec := httptest.NewRecorder()
	if ValidateCID(rec, "  ") {
		t.Fatal("blank cid accepted")
	}
	if decodeResponse(t, rec).Code != models.CodeMissingParams {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
	if !ValidateCID(httptest.NewRecorder(), "u1") {
		t.Error("valid cid rejected")
	}
}
