package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ParseResponse normalizes a raw provider reply into a ClassificationResult.
//
// The parse is strict about structure (valid JSON, category present) and
// permissive about content: an unrecognized category is coerced to unknown,
// an out-of-range confidence is clamped, and a missing confidence falls back
// to defaultConfidence. Structural failures wrap ErrInvalidResponse.
func ParseResponse(raw, provider, model string, defaultConfidence float64, logger *zap.Logger) (*ClassificationResult, error) {
	text := extractFencedBlock(strings.TrimSpace(raw))

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w from %s: %v", ErrInvalidResponse, provider, err)
	}

	rawCategory, ok := payload["category"]
	if !ok {
		return nil, fmt.Errorf("%w from %s: missing category field", ErrInvalidResponse, provider)
	}
	categoryStr, _ := rawCategory.(string)
	category, known := ParseCategory(categoryStr)
	if !known {
		logger.Warn("Unrecognized category in provider response, coercing to unknown",
			zap.String("category", categoryStr),
			zap.String("provider", provider))
	}

	confidence := defaultConfidence
	if rawConfidence, ok := payload["confidence"]; ok {
		parsed, err := toFloat(rawConfidence)
		if err != nil {
			logger.Warn("Unparseable confidence in provider response, using configured threshold",
				zap.Any("confidence", rawConfidence),
				zap.String("provider", provider))
		} else {
			if parsed < 0.0 || parsed > 1.0 {
				logger.Warn("Confidence out of range, clamping",
					zap.Float64("confidence", parsed),
					zap.String("provider", provider))
			}
			confidence = ClampConfidence(parsed)
		}
	} else {
		// A missing confidence more often means the model omitted the
		// field than that it is certain of failure, so treat the result
		// as borderline rather than worthless.
		logger.Warn("Missing confidence in provider response, using configured threshold",
			zap.String("provider", provider),
			zap.Float64("default", defaultConfidence))
	}

	reasoning, _ := payload["reasoning"].(string)

	return &ClassificationResult{
		Category:   category,
		Confidence: confidence,
		Provider:   provider,
		Model:      model,
		Reasoning:  reasoning,
	}, nil
}

// ClampConfidence bounds a confidence value to [0.0, 1.0].
func ClampConfidence(c float64) float64 {
	if c < 0.0 {
		return 0.0
	}
	if c > 1.0 {
		return 1.0
	}
	return c
}

// extractFencedBlock returns the interior of the first markdown code fence
// if one is present, tolerating backends that wrap JSON in markdown despite
// instructions not to.
func extractFencedBlock(text string) string {
	marker := "```"
	if i := strings.Index(text, marker+"json"); i >= 0 {
		rest := text[i+len(marker)+len("json"):]
		if j := strings.Index(rest, marker); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(text, marker); i >= 0 {
		rest := text[i+len(marker):]
		if j := strings.Index(rest, marker); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	return text
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
