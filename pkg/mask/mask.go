// Package mask redacts contact addresses before they are echoed to
// unauthenticated callers during the OTP challenge.
package mask

import "strings"

// Email reveals the first two characters of the local part and the full
// domain: "kwame.mensah@gra.gov.gh" -> "kw**********@gra.gov.gh".
func Email(addr string) string {
	at := strings.IndexByte(addr, '@')
	if at <= 0 {
		return Phone(addr)
	}
	local, domain := addr[:at], addr[at:]
	keep := 2
	if len(local) < keep {
		keep = len(local)
	}
	return local[:keep] + strings.Repeat("*", len(local)-keep) + domain
}

// Phone reveals the last three digits: "+233244556677" -> "**********677".
func Phone(number string) string {
	if len(number) <= 3 {
		return strings.Repeat("*", len(number))
	}
	return strings.Repeat("*", len(number)-3) + number[len(number)-3:]
}

// Contact picks the right masking for a contact value based on its shape.
func Contact(value string) string {
	if strings.ContainsRune(value, '@') {
		return Email(value)
	}
	return Phone(value)
}
