package branch

import (
	"regexp"
	"strings"
	"unicode"

	"kardex/backend/internal/domain"
)

// destinationPattern matches references such as "A SUC. #2 BAJA" or
// "A SUCURSAL #3 MEXICO" and captures the trailing destination name.
var destinationPattern = regexp.MustCompile(`(?i)A\s+SUC(?:URSAL)?[\s.,:;#-]*(?:\d+)?[\s.,:;#-]*([A-Z0-9 ]+)`)

// ResolveDestination maps an operator-typed reference to a branch id. Anything
// that does not match the pattern or the alias table yields domain.UnknownBranch.
func (d *Directory) ResolveDestination(reference string) string {
	if strings.TrimSpace(reference) == "" {
		return domain.UnknownBranch
	}

	match := destinationPattern.FindStringSubmatch(reference)
	if match == nil {
		return domain.UnknownBranch
	}

	key := normalizeToken(match[1])
	if key == "" {
		return domain.UnknownBranch
	}
	if id, ok := d.aliases[key]; ok {
		return id
	}
	return domain.UnknownBranch
}

func normalizeToken(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
}
