package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LabelSeparator replaces spaces when a free-text name becomes a label.
const LabelSeparator = "_"

// Member is an enrolled identity: one label, one reference photo.
type Member struct {
	Label       string `json:"label"`
	DisplayName string `json:"display_name"`
	PhotoPath   string `json:"photo_path"`
}

// NormalizeLabel turns operator input such as "Juan Perez" into the canonical
// label "juan_perez". Every single space becomes one separator.
func NormalizeLabel(raw string) string {
	label := strings.TrimSpace(raw)
	label = cases.Lower(language.Und).String(label)
	return strings.ReplaceAll(label, " ", LabelSeparator)
}

// ValidateLabel rejects labels that cannot be used as a photo filename or as
// a field of the attendance file.
func ValidateLabel(label string) error {
	if label == "" || label == "." || label == ".." {
		return ErrInvalidLabel
	}
	for _, r := range label {
		switch {
		case r == '/', r == '\\', r == ',', r == '"':
			return ErrInvalidLabel
		case unicode.IsControl(r):
			return ErrInvalidLabel
		}
	}
	return nil
}

// DisplayName renders a label for greetings: "juan_perez" -> "Juan Perez".
func DisplayName(label string) string {
	name := strings.ReplaceAll(label, LabelSeparator, " ")
	return cases.Title(language.Und).String(name)
}
