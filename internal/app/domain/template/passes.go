package template

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

var (
	countRe   = regexp.MustCompile(`\$count\{([^}]+)\}`)
	countOpRe = regexp.MustCompile(`(?i)^(\w+)\s*([+\-])\s*(\d+)$`)
	randRe    = regexp.MustCompile(`\$rand\{([^}]*)\}`)
)

var (
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	ErrMalformedTemplate  = errors.New("malformed template")
)

// counterOp splits a $count{} expression into its counter name and delta.
// A bare name yields mutate=false.
func counterOp(expr string) (name string, delta int, mutate bool) {
	expr = strings.TrimSpace(expr)
	m := countOpRe.FindStringSubmatch(expr)
	if m == nil {
		return strings.ToLower(expr), 0, false
	}

	n, err := strconv.Atoi(m[3])
	if err != nil {
		return strings.ToLower(expr), 0, false
	}
	if m[2] == "-" {
		n = -n
	}
	return strings.ToLower(m[1]), n, true
}

// ReferencedCounters lists the counter names a template touches through $count{}.
func ReferencedCounters(tmpl string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range countRe.FindAllStringSubmatch(tmpl, -1) {
		name, _, _ := counterOp(m[1])
		if _, ok := seen[name]; ok || name == "" {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func (e *Engine) expandCounters(s string) (string, bool) {
	if e.counters == nil || !strings.Contains(s, "$count{") {
		return s, false
	}

	mutated := false
	out := countRe.ReplaceAllStringFunc(s, func(tag string) string {
		expr := tag[len("$count{") : len(tag)-1]
		name, delta, mutate := counterOp(expr)
		if !mutate {
			return strconv.Itoa(e.counters.Get(name))
		}

		mutated = true
		return strconv.Itoa(e.counters.Add(name, delta))
	})
	return out, mutated
}

func (e *Engine) expandRand(s string) string {
	if !strings.Contains(s, "$rand{") {
		return s
	}

	return randRe.ReplaceAllStringFunc(s, func(tag string) string {
		body := tag[len("$rand{") : len(tag)-1]
		lo, hi, err := parseBounds(body)
		if err != nil {
			e.log.Error("Malformed $rand tag, using 0", err, slog.String("tag", tag))
			return "0"
		}
		return strconv.Itoa(e.between(lo, hi))
	})
}

func parseBounds(body string) (int, int, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want two bounds, got %d", len(parts))
	}

	lo, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	hi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

// format substitutes {name} placeholders from vars. "{{" and "}}" produce literal braces.
// A format spec after ':' or a conversion after '!' is accepted and ignored.
func format(s string, vars map[string]string) (string, error) {
	if !strings.ContainsAny(s, "{}") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}

			end := strings.IndexByte(s[i+1:], '}')
			if end == -1 {
				return "", fmt.Errorf("%w: Single '{' encountered in format string", ErrMalformedTemplate)
			}

			field := s[i+1 : i+1+end]
			if cut := strings.IndexAny(field, ":!"); cut != -1 {
				field = field[:cut]
			}

			v, ok := vars[field]
			if !ok {
				return "", fmt.Errorf("%w: '%s'", ErrUnknownPlaceholder, field)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w: Single '}' encountered in format string", ErrMalformedTemplate)
		default:
			b.WriteByte(c)
		}
	}

	return b.String(), nil
}

func diagnostic(err error) string {
	if errors.Is(err, ErrUnknownPlaceholder) {
		name := strings.TrimPrefix(err.Error(), ErrUnknownPlaceholder.Error()+": ")
		return "❌ Erro no comando! Variável " + name + " não reconhecida ou preenchida."
	}

	msg := strings.TrimPrefix(err.Error(), ErrMalformedTemplate.Error()+": ")
	return "❌ Erro grave no comando! (Erro: " + msg + ")"
}
