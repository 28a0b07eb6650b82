package mailbox

import "strings"

// DirectiveKind classifies the first non-empty line of a command payload.
type DirectiveKind int

const (
	// DirectiveEmpty means the payload has no non-empty line.
	DirectiveEmpty DirectiveKind = iota
	// DirectiveStop means the payload asks the guest server to shut down.
	DirectiveStop
	// DirectiveExecute means the payload is a script to run.
	DirectiveExecute
)

// stopKeywords end the guest server when they appear as the directive line,
// matched case-insensitively.
var stopKeywords = []string{"EXIT", "QUIT"}

// Directive is the parsed meaning of a command payload.
type Directive struct {
	Kind DirectiveKind
	// Line is the first non-empty trimmed line. Empty for DirectiveEmpty.
	Line string
}

// ParseDirective inspects the first non-empty trimmed line of payload and
// classifies it. Parsing is pure; it performs no I/O.
func ParseDirective(payload string) Directive {
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, kw := range stopKeywords {
			if strings.EqualFold(line, kw) {
				return Directive{Kind: DirectiveStop, Line: line}
			}
		}
		return Directive{Kind: DirectiveExecute, Line: line}
	}
	return Directive{Kind: DirectiveEmpty}
}
