package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadValidator(t *testing.T) *OpenAPIValidator {
	t.Helper()
	v, err := LoadOpenAPIValidator("../../api/openapi/openapi.yaml")
	require.NoError(t, err)
	return v
}

func formRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:39123/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonResponse(status int, body string) *http.Response {
	rec := httptest.NewRecorder()
	if body != "" {
		rec.Header().Set("Content-Type", "application/json")
	}
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	return rec.Result()
}

func TestOpenAPIValidator_Check(t *testing.T) {
	v := loadValidator(t)

	tests := []struct {
		name    string
		req     *http.Request
		resp    *http.Response
		wantErr string
	}{
		{
			name: "subscribed",
			req:  formRequest("name=le%20guin&email=ursula_le_guin%40gmail.com"),
			resp: jsonResponse(http.StatusOK, ""),
		},
		{
			name: "validation error",
			req:  formRequest("name=Ursula&email=not-an-email"),
			resp: jsonResponse(http.StatusBadRequest,
				`{"error":{"message":"validation error","details":[{"field":"email","message":"is not a valid email address"}]}}`),
		},
		{
			name:    "error envelope missing",
			req:     formRequest("name=Ursula&email=ursula%40example.com"),
			resp:    jsonResponse(http.StatusConflict, `{"message":"already subscribed"}`),
			wantErr: "response 409",
		},
		{
			name:    "undocumented status",
			req:     formRequest("name=Ursula&email=ursula%40example.com"),
			resp:    jsonResponse(http.StatusTeapot, `{"error":{"message":"teapot"}}`),
			wantErr: "response 418",
		},
		{
			name:    "undocumented path",
			req:     httptest.NewRequest(http.MethodGet, "/unsubscribe", nil),
			resp:    jsonResponse(http.StatusOK, ""),
			wantErr: "is not documented",
		},
		{
			name: "unchecked path",
			req:  httptest.NewRequest(http.MethodGet, "/metrics", nil),
			resp: jsonResponse(http.StatusOK, "not json"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.req, tt.resp)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenAPIValidator_Check_RestoresBody(t *testing.T) {
	v := loadValidator(t)
	body := `{"error":{"message":"internal error"}}`
	resp := jsonResponse(http.StatusInternalServerError, body)

	require.NoError(t, v.Check(formRequest("name=Ursula&email=ursula%40example.com"), resp))

	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestLoadOpenAPIValidator_MissingFile(t *testing.T) {
	_, err := LoadOpenAPIValidator("testdata/absent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load OpenAPI document")
}
