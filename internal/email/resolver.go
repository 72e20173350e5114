package email

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Common IMAP hosts for popular providers
var knownIMAPServers = map[string]string{
	"gmail.com":      "imap.gmail.com",
	"googlemail.com": "imap.gmail.com",
	"outlook.com":    "outlook.office365.com",
	"hotmail.com":    "outlook.office365.com",
	"yahoo.com":      "imap.mail.yahoo.com",
	"yandex.ru":      "imap.yandex.ru",
	"yandex.com":     "imap.yandex.com",
	"mail.ru":        "imap.mail.ru",
	"icloud.com":     "imap.mail.me.com",
	"zoho.com":       "imap.zoho.com",
	"fastmail.com":   "imap.fastmail.com",
	"gmx.com":        "imap.gmx.com",
}

// canConnect reports whether host:port accepts TCP connections
var canConnect = func(host string, port int) bool {
	address := net.JoinHostPort(host, fmt.Sprint(port))
	conn, err := net.DialTimeout("tcp", address, 3*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// lookupMX is replaced in tests
var lookupMX = net.LookupMX

// ResolveIMAPHost determines the IMAP host serving a mail domain
func ResolveIMAPHost(domain string, port int) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || strings.Contains(domain, "@") {
		return "", fmt.Errorf("invalid mail domain %q", domain)
	}

	// Check known providers first
	if host, ok := knownIMAPServers[domain]; ok {
		return host, nil
	}

	// Try common IMAP host patterns
	for _, host := range []string{"imap." + domain, "mail." + domain, domain} {
		if canConnect(host, port) {
			return host, nil
		}
	}

	// Try to derive from MX records
	if host, err := resolveViaMX(domain, port); err == nil {
		return host, nil
	}

	// Default fallback
	return "imap." + domain, nil
}

// resolveViaMX tries to determine the IMAP host from MX records,
// e.g. mx.example.com -> imap.example.com
func resolveViaMX(domain string, port int) (string, error) {
	mxRecords, err := lookupMX(domain)
	if err != nil || len(mxRecords) == 0 {
		return "", fmt.Errorf("no MX records found")
	}

	mxHost := strings.TrimSuffix(mxRecords[0].Host, ".")
	parts := strings.SplitN(mxHost, ".", 2)
	if len(parts) == 2 {
		for _, host := range []string{"imap." + parts[1], "mail." + parts[1]} {
			if canConnect(host, port) {
				return host, nil
			}
		}
	}

	return "", fmt.Errorf("could not determine IMAP host")
}
