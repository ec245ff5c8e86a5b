package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	require.NotNil(t, r)

	assert.NotNil(t, r.html.Lookup("confirmation.html.tmpl"))
	assert.NotNil(t, r.text.Lookup("confirmation.txt.tmpl"))
}

func TestRenderer_RenderConfirmation(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	link := "https://newsletter.example.com/subscriptions/confirm?subscription_token=abc123"
	subject, htmlBody, textBody, err := r.RenderConfirmation(ConfirmationData{
		Name:             "Ursula Le Guin",
		ConfirmationLink: link,
	})
	require.NoError(t, err)

	assert.Equal(t, "Welcome! Please confirm your subscription", subject)

	assert.Contains(t, htmlBody, "Hi Ursula Le Guin,")
	assert.Contains(t, htmlBody, `href="`+link+`"`)

	assert.Contains(t, textBody, "Hi Ursula Le Guin,")
	assert.Contains(t, textBody, link)
	assert.NotContains(t, textBody, "<p>")
}

func TestRenderer_RenderConfirmation_EscapesHTML(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, htmlBody, textBody, err := r.RenderConfirmation(ConfirmationData{
		Name:             `<script>alert("x")</script>`,
		ConfirmationLink: "https://newsletter.example.com/subscriptions/confirm?subscription_token=t",
	})
	require.NoError(t, err)

	assert.NotContains(t, htmlBody, "<script>")
	assert.Contains(t, htmlBody, "&lt;script&gt;")
	// Plain-text body is not HTML and keeps the name as given.
	assert.Contains(t, textBody, `<script>alert("x")</script>`)
}

func TestRenderer_RenderConfirmation_RejectsUnsafeLink(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	_, htmlBody, _, err := r.RenderConfirmation(ConfirmationData{
		Name:             "Ursula",
		ConfirmationLink: "javascript:alert(1)",
	})
	require.NoError(t, err)

	assert.NotContains(t, htmlBody, "javascript:")
	assert.Contains(t, htmlBody, "#ZgotmplZ")
}
