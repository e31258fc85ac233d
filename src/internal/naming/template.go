// FILE: logship/src/internal/naming/template.go
package naming

import "strings"

// Unknown is substituted for every token when instance identity is unavailable
const Unknown = "unknown"

// Values holds the substitutions available to a stream name template
type Values struct {
	InstanceID   string
	InstanceName string
}

type token struct {
	pattern string
	name    bool // substitute the instance name, otherwise the id
}

// Longer patterns come first; "instance" and "in" are prefixes of later forms.
var tokens = []token{
	{"{instanceName}", true},
	{"instanceName", true},
	{"{instanceId}", false},
	{"instanceId", false},
	{"{instance}", true},
	{"instance", true},
	{"{iid}", false},
	{"iid", false},
	{"{in}", true},
	{"in", true},
}

// Expand replaces %-tokens in template with the instance name or id.
// A '%' that does not start a known token is kept as-is.
func Expand(template string, v Values) string {
	if strings.IndexByte(template, '%') < 0 {
		return template
	}

	var sb strings.Builder
	sb.Grow(len(template) + len(v.InstanceName))

outer:
	for i := 0; i < len(template); {
		ch := template[i]
		i++
		if ch != '%' {
			sb.WriteByte(ch)
			continue
		}
		for _, tok := range tokens {
			if strings.HasPrefix(template[i:], tok.pattern) {
				if tok.name {
					sb.WriteString(v.InstanceName)
				} else {
					sb.WriteString(v.InstanceID)
				}
				i += len(tok.pattern)
				continue outer
			}
		}
		sb.WriteByte(ch)
	}
	return sb.String()
}
