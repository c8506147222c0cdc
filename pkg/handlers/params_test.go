package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestDecodeRequest(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name        string
		body        string
		wantOK      bool
		wantStatus  int
		wantError   string
		wantMessage string
	}{
		{
			name:   "valid body",
			body:   `{"names": ["genes", "screens"]}`,
			wantOK: true,
		},
		{
			name:       "malformed json",
			body:       `{"names": [`,
			wantOK:     false,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_request",
		},
		{
			name:        "missing names",
			body:        `{}`,
			wantOK:      false,
			wantStatus:  http.StatusBadRequest,
			wantError:   "validation_error",
			wantMessage: "Names",
		},
		{
			name:        "empty name in list",
			body:        `{"names": ["genes", ""]}`,
			wantOK:      false,
			wantStatus:  http.StatusBadRequest,
			wantError:   "validation_error",
			wantMessage: "Names[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			got, ok := decodeRequest[AddLandscapesRequest](rec, req, logger)

			if ok != tt.wantOK {
				t.Fatalf("decodeRequest() ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK {
				if len(got.Names) != 2 {
					t.Errorf("decodeRequest() names = %v, want 2 entries", got.Names)
				}
				return
			}

			if rec.Code != tt.wantStatus {
				t.Errorf("decodeRequest() status = %v, want %v", rec.Code, tt.wantStatus)
			}

			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.wantError {
				t.Errorf("decodeRequest() error = %v, want %v", resp["error"], tt.wantError)
			}
			if tt.wantMessage != "" && !strings.Contains(resp["message"], tt.wantMessage) {
				t.Errorf("decodeRequest() message = %q, want it to mention %q", resp["message"], tt.wantMessage)
			}
		})
	}
}

func TestDecodeRequest_BodyTooLarge(t *testing.T) {
	body := `{"names": ["` + strings.Repeat("a", maxRequestBodyBytes) + `"]}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	rec := httptest.NewRecorder()

	if _, ok := decodeRequest[AddLandscapesRequest](rec, req, zap.NewNop()); ok {
		t.Fatal("decodeRequest() accepted an oversized body")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("decodeRequest() status = %v, want %v", rec.Code, http.StatusBadRequest)
	}
}

func TestBoolQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		def   bool
		want  bool
	}{
		{name: "absent uses default true", query: "", def: true, want: true},
		{name: "absent uses default false", query: "", def: false, want: false},
		{name: "explicit false", query: "?flag=false", def: true, want: false},
		{name: "numeric true", query: "?flag=1", def: false, want: true},
		{name: "malformed uses default", query: "?flag=maybe", def: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test"+tt.query, nil)
			if got := boolQuery(req, "flag", tt.def); got != tt.want {
				t.Errorf("boolQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}
