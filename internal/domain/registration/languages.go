package registration

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Language is a language that can be learned.
type Language struct {
	Name string
	Tag  language.Tag
}

// Languages lists the supported learning languages in display order.
var Languages = []Language{
	{Name: "English", Tag: language.English},
	{Name: "Spanish", Tag: language.Spanish},
	{Name: "French", Tag: language.French},
	{Name: "German", Tag: language.German},
	{Name: "Italian", Tag: language.Italian},
	{Name: "Portuguese", Tag: language.Portuguese},
	{Name: "Japanese", Tag: language.Japanese},
}

// LanguageNames returns the display names of Languages.
func LanguageNames() []string {
	names := make([]string, len(Languages))
	for i, l := range Languages {
		names[i] = l.Name
	}
	return names
}

// ResolveLanguage accepts a display name ("spanish") or a BCP 47 tag
// ("es-MX") and returns the supported language it refers to.
func ResolveLanguage(input string) (Language, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Language{}, false
	}

	fold := cases.Fold()
	folded := fold.String(input)
	for _, l := range Languages {
		if fold.String(l.Name) == folded {
			return l, true
		}
	}

	tag, err := language.Parse(input)
	if err != nil {
		return Language{}, false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return Language{}, false
	}
	for _, l := range Languages {
		if b, _ := l.Tag.Base(); b == base {
			return l, true
		}
	}
	return Language{}, false
}
