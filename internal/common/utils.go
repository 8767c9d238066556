package common

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TitleCounty upper-cases the first letter of every word of a county name.
// The remaining letters are left alone so names like "McKean" survive.
func TitleCounty(name string) string {
	return cases.Title(language.English, cases.NoLower).String(strings.TrimSpace(name))
}
