package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSymbols is the set of characters accepted by the symbol rule.
const DefaultSymbols = "@$!%*?&"

// Policy describes the strength rules applied to new passwords.
type Policy struct {
	MinLength     int
	RequireLower  bool
	RequireUpper  bool
	RequireDigit  bool
	RequireSymbol bool
	Symbols       string
}

// Strength is the outcome of Policy.Validate. Errors lists every violated
// rule in a stable order.
type Strength struct {
	Valid  bool
	Errors []string
}

// DefaultPolicy returns the eight-character, four-class policy.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:     8,
		RequireLower:  true,
		RequireUpper:  true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       DefaultSymbols,
	}
}

// Validate evaluates every rule without short-circuiting.
func (p Policy) Validate(password string) Strength {
	var errs []string

	if utf8.RuneCountInString(password) < p.MinLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", p.MinLength))
	}
	if len(password) > MaxPasswordBytes {
		errs = append(errs, fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes))
	}

	var lower, upper, digit, symbol bool
	symbols := p.Symbols
	if symbols == "" {
		symbols = DefaultSymbols
	}
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(symbols, r):
			symbol = true
		}
	}

	if p.RequireLower && !lower {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if p.RequireUpper && !upper {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if p.RequireDigit && !digit {
		errs = append(errs, "Password must contain at least one number")
	}
	if p.RequireSymbol && !symbol {
		errs = append(errs, fmt.Sprintf("Password must contain at least one special character (%s)", symbols))
	}

	return Strength{Valid: len(errs) == 0, Errors: errs}
}
