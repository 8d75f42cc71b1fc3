package translate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"subburn/internal/language"
	"subburn/internal/services/llm"
)

// numberPrefix matches the "N. " or "N) " enumeration the model echoes back.
var numberPrefix = regexp.MustCompile(`^\s*\d+[.)](\s+|$)`)

// BuildPrompt renders the instruction followed by texts numbered from 1.
func BuildPrompt(sourceLang, targetLang string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Translate the following %s subtitles into %s while preserving timing and formatting:\n\n",
		language.DisplayName(sourceLang), language.DisplayName(targetLang))
	for i, text := range texts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(text)
	}
	return b.String()
}

// ParseResponse splits a model reply into lines, dropping blank lines and
// the leading enumeration of each line.
func ParseResponse(content string) []string {
	content = strings.TrimSpace(llm.StripCodeFence(content))
	if content == "" {
		return nil
	}
	raw := strings.Split(content, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, strings.TrimSpace(numberPrefix.ReplaceAllString(line, "")))
	}
	return lines
}
