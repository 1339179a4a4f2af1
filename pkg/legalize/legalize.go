package legalize

import (
	"strings"
)

// Result classifies the outcome of building a tradable payload from a set
// description. Everything except ResultOK is terminal for the session.
type Result int

const (
	ResultOK Result = iota
	ResultTimeout
	ResultVersionMismatch
	ResultFailed
	ResultInvalidLines
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultTimeout:
		return "Timeout"
	case ResultVersionMismatch:
		return "VersionMismatch"
	case ResultInvalidLines:
		return "InvalidLines"
	default:
		return "Failed"
	}
}

// Payload is the tradable content handed to the queue. Opaque to the session
// core except for the species label used in outbound messages.
type Payload struct {
	Species string
	Item    string
	Lines   []string // normalized set lines
	Invalid []string // lines the parser rejected
}

// Builder is the payload templating boundary. The production implementation
// parses set text locally; tests substitute builders returning Timeout or
// VersionMismatch to exercise the session's failure fan-out.
type Builder interface {
	BuildPayload(setDescription string) (Payload, Result)
}

// SetBuilder parses the line-oriented set format:
//
//	Species @ Item
//	Ability: ...
//	Tera Type: ...
//	EVs: 252 SpA / 4 SpD / 252 Spe
//	Timid Nature
//	IVs: 0 Atk
//	MoveOne
//	- MoveTwo
type SetBuilder struct{}

var attributePrefixes = []string{
	"Ability:", "Tera Type:", "EVs:", "IVs:", "Level:", "Shiny:", "Ball:",
	"Happiness:", "Language:", "OT:", "TID:", "SID:",
}

func (SetBuilder) BuildPayload(setDescription string) (Payload, Result) {
	var p Payload

	raw := strings.Split(strings.ReplaceAll(setDescription, "\r\n", "\n"), "\n")
	lines := raw[:0]
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		return p, ResultFailed
	}

	// Header: "Species @ Item" or bare species.
	head := lines[0]
	if at := strings.Index(head, "@"); at >= 0 {
		p.Species = strings.TrimSpace(head[:at])
		p.Item = strings.TrimSpace(head[at+1:])
	} else {
		p.Species = strings.TrimSpace(head)
	}
	if p.Species == "" {
		return p, ResultFailed
	}
	p.Lines = append(p.Lines, head)

	moves := 0
	for _, line := range lines[1:] {
		switch {
		case isAttribute(line):
			p.Lines = append(p.Lines, line)
		case strings.HasSuffix(line, "Nature"):
			p.Lines = append(p.Lines, line)
		case strings.HasPrefix(line, "- "):
			moves++
			p.Lines = append(p.Lines, strings.TrimSpace(line[2:]))
		case isMoveLike(line):
			moves++
			p.Lines = append(p.Lines, line)
		default:
			p.Invalid = append(p.Invalid, line)
		}
	}

	if len(p.Invalid) != 0 {
		return p, ResultInvalidLines
	}
	if moves == 0 {
		return p, ResultFailed
	}
	return p, ResultOK
}

func isAttribute(line string) bool {
	for _, pre := range attributePrefixes {
		if strings.HasPrefix(line, pre) {
			return true
		}
	}
	return false
}

// isMoveLike accepts short word sequences without punctuation, the shape of a
// bare move name in the reference sample sets.
func isMoveLike(line string) bool {
	if strings.ContainsAny(line, ":@/=") {
		return false
	}
	words := strings.Fields(line)
	return len(words) >= 1 && len(words) <= 4
}
