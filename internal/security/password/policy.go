package password

import (
	"fmt"
	"strings"
	"unicode"
)

type Policy struct {
	MinLength     int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	// Blacklist opcional de passwords comunes.
	Blacklist *Blacklist
}

func (p Policy) Validate(s string) (ok bool, reasons []string) {
	if len([]rune(s)) < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	var hasU, hasL, hasD, hasS bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			hasU = true
		case unicode.IsLower(r):
			hasL = true
		case unicode.IsDigit(r):
			hasD = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasS = true
		}
	}
	if p.RequireUpper && !hasU {
		reasons = append(reasons, "missing_upper")
	}
	if p.RequireLower && !hasL {
		reasons = append(reasons, "missing_lower")
	}
	if p.RequireDigit && !hasD {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireSymbol && !hasS {
		reasons = append(reasons, "missing_symbol")
	}
	if p.Blacklist.Contains(s) {
		reasons = append(reasons, "blacklisted")
	}
	return len(reasons) == 0, reasons
}

// Check es Validate en forma de error, con un mensaje apto para el cliente.
func (p Policy) Check(s string) error {
	ok, reasons := p.Validate(s)
	if ok {
		return nil
	}
	msgs := make([]string, 0, len(reasons))
	for _, r := range reasons {
		switch r {
		case "too_short":
			msgs = append(msgs, fmt.Sprintf("Password must be at least %d characters long", p.MinLength))
		case "missing_upper":
			msgs = append(msgs, "Password must contain an uppercase letter")
		case "missing_lower":
			msgs = append(msgs, "Password must contain a lowercase letter")
		case "missing_digit":
			msgs = append(msgs, "Password must contain a digit")
		case "missing_symbol":
			msgs = append(msgs, "Password must contain a symbol")
		case "blacklisted":
			msgs = append(msgs, "Password is too common")
		}
	}
	return &PolicyError{Reasons: reasons, Message: strings.Join(msgs, ". ")}
}

// PolicyError describe por qué un password no cumple la política.
type PolicyError struct {
	Reasons []string
	Message string
}

func (e *PolicyError) Error() string { return e.Message }
