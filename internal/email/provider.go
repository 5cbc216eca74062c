package email

// Provider sends transactional email. Delivery is best-effort; callers
// must not fail a request on a send error.
type Provider interface {
	Send(to, subject, htmlBody string) error
}
