package notification

import "github.com/wneessen/go-mail"

// ExportedTLSPolicy exposes tlsPolicyFromEncryption for external tests.
func ExportedTLSPolicy(enc string) mail.TLSPolicy {
	return tlsPolicyFromEncryption(enc)
}
