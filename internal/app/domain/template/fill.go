package template

import "strings"

// Fill replaces {key} placeholders in a configured message. Unlike Resolve it never fails:
// unknown placeholders and stray braces stay as they are.
func Fill(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
