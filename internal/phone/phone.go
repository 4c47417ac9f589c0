// Package phone normalizes Philippine mobile numbers to the canonical
// +63XXXXXXXXXX form used as the account partition key.
package phone

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-wallet-api/internal/domain"
)

// subscriber matches the 10-digit national part: mobile prefixes start
// with 8 or 9.
var subscriber = regexp.MustCompile(`^[89]\d{9}$`)

// Normalize accepts +63XXXXXXXXXX, 63XXXXXXXXXX and 0XXXXXXXXXX inputs and
// returns the canonical +63 form. Whitespace and dashes are stripped first.
func Normalize(raw string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	var national string
	switch {
	case strings.HasPrefix(s, "+63"):
		national = s[3:]
	case strings.HasPrefix(s, "63") && len(s) == 12:
		national = s[2:]
	case strings.HasPrefix(s, "0") && len(s) == 11:
		national = s[1:]
	default:
		return "", fmt.Errorf("unrecognized phone format %q: %w", raw, domain.ErrBadRequest)
	}

	if !subscriber.MatchString(national) {
		return "", fmt.Errorf("invalid subscriber number: %w", domain.ErrBadRequest)
	}
	return "+63" + national, nil
}
