package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// ProviderEmail is one request received by EmailProvider.
type ProviderEmail struct {
	From          string `json:"From"`
	To            string `json:"To"`
	Subject       string `json:"Subject"`
	HTMLBody      string `json:"HtmlBody"`
	TextBody      string `json:"TextBody"`
	Authorization string `json:"-"`
}

// EmailProvider is an httptest stand-in for the transactional email API.
// It records every POST /email and answers with a configurable status.
type EmailProvider struct {
	*httptest.Server

	mu       sync.Mutex
	received []ProviderEmail
	status   int
	delay    time.Duration
}

// NewEmailProvider starts a provider that answers 200 until told otherwise.
func NewEmailProvider() *EmailProvider {
	p := &EmailProvider{status: http.StatusOK}
	p.Server = httptest.NewServer(http.HandlerFunc(p.handle))
	return p
}

func (p *EmailProvider) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/email" {
		http.NotFound(w, r)
		return
	}

	var email ProviderEmail
	if err := json.NewDecoder(r.Body).Decode(&email); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	email.Authorization = r.Header.Get("Authorization")

	p.mu.Lock()
	p.received = append(p.received, email)
	status, delay := p.status, p.delay
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	w.WriteHeader(status)
}

// RespondWith sets the status returned for subsequent requests.
func (p *EmailProvider) RespondWith(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// Delay makes subsequent responses wait d before answering.
func (p *EmailProvider) Delay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// Received returns a copy of all recorded requests.
func (p *EmailProvider) Received() []ProviderEmail {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]ProviderEmail, len(p.received))
	copy(result, p.received)
	return result
}

// Reset clears recorded requests and restores the 200 response.
func (p *EmailProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.received = nil
	p.status = http.StatusOK
	p.delay = 0
}
