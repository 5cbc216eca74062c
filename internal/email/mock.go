package email

import "sync"

// MockProvider records sends in memory; used in tests and local runs
// without SMTP credentials.
type MockProvider struct {
	mu   sync.Mutex
	Sent []MockMessage
}

type MockMessage struct {
	To      string
	Subject string
	Body    string
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Send(to, subject, htmlBody string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sent = append(p.Sent, MockMessage{To: to, Subject: subject, Body: htmlBody})
	return nil
}
