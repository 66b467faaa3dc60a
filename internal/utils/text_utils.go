package utils

import (
	"unicode/utf8"

	"go.uber.org/zap"
)

// truncationMarker separates the head and tail slices of a smart-truncated
// body and signals the cut to the model.
const truncationMarker = "\n\n[...]\n\n"

// TextProcessor provides utilities for preparing email text for a
// classifier prompt.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor.
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// SmartTruncate reduces text longer than threshold bytes to the first head
// bytes plus the last tail bytes, joined by an explicit marker. The head
// keeps the opening cues a classifier needs; the tail keeps signatures and
// calls to action. Both cut points back off to valid UTF-8 boundaries.
func (tp *TextProcessor) SmartTruncate(text string, threshold, head, tail int) string {
	if threshold <= 0 || len(text) <= threshold {
		return text
	}

	front := text[:head]
	for !utf8.ValidString(front) && len(front) > 0 {
		front = front[:len(front)-1]
	}
	back := text[len(text)-tail:]
	for !utf8.ValidString(back) && len(back) > 0 {
		back = back[1:]
	}

	tp.logger.Debug("Email body smart-truncated",
		zap.Int("original_size", len(text)),
		zap.Int("head", len(front)),
		zap.Int("tail", len(back)))

	return front + truncationMarker + back
}

// TruncateText truncates text to maxSize bytes, keeping the result valid
// UTF-8 and appending a truncation note.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Email body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the string.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText truncates and sanitizes text in one operation.
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}
