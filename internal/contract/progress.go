package contract

import "net/mail"

// SignatureProgress returns the percentage of required signatures collected.
// A fully signed or completed contract is always 100 regardless of the
// signature list the backend returned alongside it.
func SignatureProgress(c *Contract) int {
	if c == nil {
		return 0
	}
	if c.Status.Signed() {
		return 100
	}
	required := c.RequiredSignatures
	if required <= 0 {
		required = 2
	}
	signed := len(c.Signatures)
	if signed <= 0 {
		return 0
	}
	pct := signed * 100 / required
	// Only the backend decides a contract is fully signed.
	if pct >= 100 {
		return 99
	}
	return pct
}

// ValidEmail reports whether value is a bare RFC 5322 address.
func ValidEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return false
	}
	return addr.Address == value && addr.Name == ""
}
