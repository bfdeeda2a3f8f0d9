package imagegen

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// PromptPlaceholder marks where visitor text is spliced into the template.
const PromptPlaceholder = "{}"

// MaxVisitorTextRunes bounds the visitor description.
const MaxVisitorTextRunes = 120

// NormalizeVisitorText trims the description and folds it to NFC so that
// length checks and the upstream see one canonical form.
func NormalizeVisitorText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// VisitorTextLength counts characters the way the length limit does.
func VisitorTextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// BuildPrompt splices text into template. Only the first placeholder is
// replaced; templates without one get the text appended.
func BuildPrompt(template, text string) string {
	clean := strings.TrimSpace(text)
	if strings.Contains(template, PromptPlaceholder) {
		return strings.Replace(template, PromptPlaceholder, clean, 1)
	}
	return strings.TrimSpace(template + " " + clean)
}
