package agent

import (
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
)

var cityPrompt = template.Must(template.New("city").Funcs(sprig.TxtFuncMap()).Parse(
	`Analyze message and define name of the city. Return ONLY city name.

Message: {{ .Message | trim }}

You need take only 1 city. Return only city name, nothing else.`))

func renderCityPrompt(message string) (string, error) {
	var b strings.Builder
	if err := cityPrompt.Execute(&b, struct{ Message string }{message}); err != nil {
		return "", errors.Wrap(err, "render city prompt")
	}
	return b.String(), nil
}

const (
	maxCityRunes = 85
	maxCityWords = 5
)

// validCityName reports whether trimmed model output can be used as a city
// name: a single short line without sentence punctuation.
func validCityName(s string) bool {
	switch {
	case s == "":
		return false
	case strings.ContainsAny(s, "\r\n"):
		return false
	case utf8.RuneCountInString(s) > maxCityRunes:
		return false
	case len(strings.Fields(s)) > maxCityWords:
		return false
	case strings.ContainsAny(s, "?!:;"):
		return false
	}
	return true
}
