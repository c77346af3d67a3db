package service

import (
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/formbricks/embedding-gateway/internal/models"
)

const (
	previewMaxItems      = 5
	previewMaxItemRunes  = 100
	previewMaxTextRunes  = 1000
	previewEllipsis      = "..."
	defaultErrorStatus   = 500
	successStatus        = 200
	embeddingErrorSource = "openai-embedding"
)

// statusCodePattern recovers a status code from free-text errors that carry one (e.g. "... status code 503 ...").
var statusCodePattern = regexp.MustCompile(`status code (\d+)`)

// BuildInputPreview returns a truncated copy of input for error logs.
// Lists keep the first 5 items, each capped at 100 characters, plus a trailing "..." item when items were dropped.
// Single strings are capped at 1000 characters. Truncated values end with "...".
func BuildInputPreview(input models.EmbeddingInput) models.InputPreview {
	if !input.IsList() {
		return models.InputPreview{InputTruncated: models.NewTextInput(truncateRunes(input.Text(), previewMaxTextRunes))}
	}

	texts := input.Texts()
	n := min(len(texts), previewMaxItems)

	items := make([]string, 0, n+1)
	for _, t := range texts[:n] {
		items = append(items, truncateRunes(t, previewMaxItemRunes))
	}

	if len(texts) > previewMaxItems {
		items = append(items, previewEllipsis)
	}

	return models.InputPreview{InputTruncated: models.NewTextsInput(items)}
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit]) + previewEllipsis
}

// parseStatusCode extracts the first "status code <digits>" from text, defaulting to 500.
func parseStatusCode(text string) int {
	match := statusCodePattern.FindStringSubmatch(text)
	if match == nil {
		return defaultErrorStatus
	}

	code, err := strconv.Atoi(match[1])
	if err != nil {
		return defaultErrorStatus
	}

	return code
}
