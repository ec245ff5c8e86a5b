package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// uncheckedPaths answer with plain text or no body and are left out of the document.
var uncheckedPaths = []string{"/health_check", "/readyz", "/metrics"}

// OpenAPIValidator checks exchanges with the running service against api/openapi/openapi.yaml.
type OpenAPIValidator struct {
	router routers.Router
}

// LoadOpenAPIValidator parses and validates the document at path.
// Server URLs are dropped so routes match on path alone, whatever port the test server got.
func LoadOpenAPIValidator(path string) (*OpenAPIValidator, error) {
	doc, err := openapi3.NewLoader().LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI document %s: %w", path, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}
	doc.Servers = nil

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}
	return &OpenAPIValidator{router: router}, nil
}

// Check validates req and resp and returns every mismatch found.
// req must carry an unread copy of the body that was sent.
// resp.Body is read and replaced, so callers can still consume it.
func (v *OpenAPIValidator) Check(req *http.Request, resp *http.Response) error {
	if slices.Contains(uncheckedPaths, req.URL.Path) {
		return nil
	}

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("%s %s is not documented: %w", req.Method, req.URL.Path, err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: true},
	}

	var errs []error
	if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
		errs = append(errs, fmt.Errorf("request: %w", err))
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("read response body: %w", err))...)
	}

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("response %d (body %q): %w", resp.StatusCode, clip(body, 200), err))
	}

	return errors.Join(errs...)
}

// ValidateRequestResponse reports Check failures on t without stopping the test.
func (v *OpenAPIValidator) ValidateRequestResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()
	if err := v.Check(req, resp); err != nil {
		t.Errorf("OpenAPI mismatch for %s %s: %s", req.Method, req.URL.Path, clip([]byte(err.Error()), 800))
	}
}

func clip(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
