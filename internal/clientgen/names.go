package clientgen

import (
	"bytes"
	"fmt"
	"go/token"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/anchorgo/internal/ir"
)

// exportName converts an IDL identifier to an exported Go identifier:
// "set_mode" -> "SetMode", "field_0" -> "Field0".
func exportName(s string) string {
	title := cases.Title(language.Und, cases.NoLower)
	var b strings.Builder
	for _, w := range ir.Words(s) {
		b.WriteString(title.String(strings.Map(identRune, w)))
	}
	out := b.String()
	if out == "" || !unicode.IsLetter([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// lowerCamel converts an IDL identifier to an unexported Go identifier.
// Keywords and the names generated code uses for locals get an "Arg"
// suffix.
func lowerCamel(s string) string {
	p := exportName(s)
	r := []rune(p)
	i := 0
	for i < len(r) && unicode.IsUpper(r[i]) {
		i++
	}
	// Lower a leading acronym but keep the capital that starts the next word.
	if i > 1 && i < len(r) {
		i--
	}
	out := strings.ToLower(string(r[:i])) + string(r[i:])
	if token.IsKeyword(out) || reservedLocals[out] {
		out += "Arg"
	}
	return out
}

var reservedLocals = map[string]bool{
	"accounts": true,
	"d":        true,
	"e":        true,
	"err":      true,
	"metas":    true,
}

func identRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return r
	}
	return -1
}

// writeDocs emits IDL docs as line comments. An entry may itself span
// several lines.
func writeDocs(buf *bytes.Buffer, docs []string, indent string) {
	for _, entry := range docs {
		for _, line := range strings.Split(entry, "\n") {
			line = strings.TrimRight(line, "\r")
			if strings.TrimSpace(line) == "" {
				fmt.Fprintf(buf, "%s//\n", indent)
				continue
			}
			fmt.Fprintf(buf, "%s// %s\n", indent, line)
		}
	}
}

func byteLiteral(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[]byte{" + strings.Join(parts, ", ") + "}"
}
