package subscriptions

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/bissquit/newsletter-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTokenWriter struct {
	errs    []error
	written []*domain.ConfirmationToken
}

func (w *recordingTokenWriter) InsertToken(_ context.Context, token *domain.ConfirmationToken) error {
	w.written = append(w.written, token)
	if len(w.errs) == 0 {
		return nil
	}
	err := w.errs[0]
	w.errs = w.errs[1:]
	return err
}

func TestTokenIssuer_Issue(t *testing.T) {
	issuer := NewTokenIssuer()
	w := &recordingTokenWriter{}

	token, err := issuer.Issue(context.Background(), w, "sub-1")
	require.NoError(t, err)

	assert.Equal(t, "sub-1", token.SubscriberID)
	assert.False(t, token.IssuedAt.IsZero())
	require.Len(t, w.written, 1)
	assert.Same(t, token, w.written[0])

	raw, err := base64.RawURLEncoding.DecodeString(token.Value)
	require.NoError(t, err)
	assert.Len(t, raw, tokenBytes)
	assert.Len(t, token.Value, 43)
}

func TestTokenIssuer_Issue_Unique(t *testing.T) {
	issuer := NewTokenIssuer()
	w := &recordingTokenWriter{}

	seen := make(map[string]struct{})
	for range 100 {
		token, err := issuer.Issue(context.Background(), w, "sub-1")
		require.NoError(t, err)
		_, dup := seen[token.Value]
		require.False(t, dup)
		seen[token.Value] = struct{}{}
	}
}

func TestTokenIssuer_Issue_RetriesOnConflict(t *testing.T) {
	issuer := NewTokenIssuer()
	w := &recordingTokenWriter{errs: []error{ErrTokenConflict, ErrTokenConflict}}

	token, err := issuer.Issue(context.Background(), w, "sub-1")
	require.NoError(t, err)
	require.Len(t, w.written, 3)
	assert.Equal(t, w.written[2].Value, token.Value)
	assert.NotEqual(t, w.written[0].Value, w.written[1].Value)
}

func TestTokenIssuer_Issue_RetriesExhausted(t *testing.T) {
	issuer := NewTokenIssuer()
	w := &recordingTokenWriter{errs: []error{ErrTokenConflict, ErrTokenConflict, ErrTokenConflict, nil}}

	token, err := issuer.Issue(context.Background(), w, "sub-1")
	assert.Nil(t, token)
	assert.ErrorIs(t, err, ErrTokenRetriesExhausted)
	assert.Len(t, w.written, MaxTokenAttempts)
}

func TestTokenIssuer_Issue_WriterError(t *testing.T) {
	issuer := NewTokenIssuer()
	writeErr := errors.New("connection reset")
	w := &recordingTokenWriter{errs: []error{writeErr}}

	_, err := issuer.Issue(context.Background(), w, "sub-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.Len(t, w.written, 1)
}

func TestTokenIssuer_Issue_RequiresSubscriber(t *testing.T) {
	w := &recordingTokenWriter{}
	_, err := NewTokenIssuer().Issue(context.Background(), w, "")
	require.Error(t, err)
	assert.Empty(t, w.written)
}

func TestTokenIssuer_Issue_RandomSourceFailure(t *testing.T) {
	issuer := NewTokenIssuerFromReader(bytes.NewReader([]byte{1, 2, 3}))
	w := &recordingTokenWriter{}

	_, err := issuer.Issue(context.Background(), w, "sub-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate token")
	assert.Empty(t, w.written)
}

func TestTokenIssuer_Issue_FromReader(t *testing.T) {
	seed := bytes.Repeat([]byte{0xAB}, tokenBytes)
	issuer := NewTokenIssuerFromReader(bytes.NewReader(seed))
	w := &recordingTokenWriter{}

	token, err := issuer.Issue(context.Background(), w, "sub-1")
	require.NoError(t, err)
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(seed), token.Value)
}
