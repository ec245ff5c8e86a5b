package subscriptions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store, sender ConfirmationSender) http.Handler {
	r := chi.NewRouter()
	NewHandler(newTestService(store, sender)).RegisterRoutes(r)
	return r
}

func postForm(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Message string            `json:"message"`
		Details []json.RawMessage `json:"details"`
	} `json:"error"`
}

func TestHandler_Subscribe_ValidForm(t *testing.T) {
	store := newMemStore()
	sender := &mockConfirmationSender{}
	h := newTestRouter(store, sender)

	rec := postForm(t, h, "name=le%20guin&email=ursula_le_guin%40gmail.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())

	stored, ok := store.byEmail("ursula_le_guin@gmail.com")
	require.True(t, ok)
	assert.Equal(t, "le guin", stored.Name)

	calls := sender.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ursula_le_guin@gmail.com", calls[0].subscriber.Email)
}

func TestHandler_Subscribe_JeremyZelaya(t *testing.T) {
	store := newMemStore()
	sender := &mockConfirmationSender{}
	h := newTestRouter(store, sender)

	rec := postForm(t, h, "name=Jeremy%20Zelaya&email=jeremyzelaya%40example.com")
	require.Equal(t, http.StatusOK, rec.Code)

	stored, ok := store.byEmail("jeremyzelaya@example.com")
	require.True(t, ok)
	assert.Equal(t, "Jeremy Zelaya", stored.Name)
	assert.Len(t, sender.calls(), 1)
}

func TestHandler_Subscribe_IgnoresUnknownFields(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, &mockConfirmationSender{})

	rec := postForm(t, h, "name=Ursula&email=ursula%40example.com&utm_source=footer")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.count())
}

func TestHandler_Subscribe_InvalidForm(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"empty body", "", "name"},
		{"missing email", "name=le%20guin", "email"},
		{"missing name", "email=ursula_le_guin%40gmail.com", "name"},
		{"empty name", "name=&email=ursula_le_guin%40gmail.com", "name"},
		{"empty email", "name=Ursula&email=", "email"},
		{"invalid email", "name=Ursula&email=definitely-not-an-email", "email"},
		{"not-an-email", "name=Ursula&email=not-an-email", "email"},
		{"name not utf-8", "name=%FF&email=ursula%40example.com", "name"},
		{"name with truncated sequence", "name=Ursula%20%C3&email=ursula%40example.com", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			sender := &mockConfirmationSender{}
			h := newTestRouter(store, sender)

			rec := postForm(t, h, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, store.count())
			assert.Empty(t, sender.calls())

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "validation error", body.Error.Message)
			require.Len(t, body.Error.Details, 1)
			assert.Contains(t, string(body.Error.Details[0]), fmt.Sprintf(`"field":%q`, tt.wantField))
		})
	}
}

func TestHandler_Subscribe_MalformedBody(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, &mockConfirmationSender{})

	rec := postForm(t, h, "name=%zz&email=a%40example.com")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.count())
}

func TestHandler_Subscribe_BodyTooLarge(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, &mockConfirmationSender{})

	body := url.Values{
		"name":  {strings.Repeat("a", maxFormBytes)},
		"email": {"a@example.com"},
	}.Encode()
	rec := postForm(t, h, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, store.count())
}

func TestHandler_Subscribe_Duplicate(t *testing.T) {
	store := newMemStore()
	sender := &mockConfirmationSender{}
	h := newTestRouter(store, sender)

	first := postForm(t, h, "name=Ursula&email=ursula%40example.com")
	require.Equal(t, http.StatusOK, first.Code)

	second := postForm(t, h, "name=Other&email=ursula%40example.com")
	assert.Equal(t, http.StatusConflict, second.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "email is already subscribed", body.Error.Message)

	assert.Equal(t, 1, store.count())
	assert.Len(t, sender.calls(), 1)
}

func TestHandler_Subscribe_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = fmt.Errorf("begin tx: %w: %w", ErrStoreUnavailable, errors.New("connection refused"))
	sender := &mockConfirmationSender{}
	h := newTestRouter(store, sender)

	rec := postForm(t, h, "name=Ursula&email=ursula%40example.com")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Empty(t, sender.calls())
}

func TestHandler_Subscribe_SendFailureStillOK(t *testing.T) {
	store := newMemStore()
	sender := &mockConfirmationSender{err: transientErr{}}
	h := newTestRouter(store, sender)

	rec := postForm(t, h, "name=Ursula&email=ursula%40example.com")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, store.count())
	assert.Len(t, sender.calls(), 1)
}

func TestHandler_Subscribe_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(newMemStore(), &mockConfirmationSender{})

	req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
