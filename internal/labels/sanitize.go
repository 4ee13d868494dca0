/*
 * MIT License
 *
 * Copyright (c) 2025 Roberto Leinardi
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package labels parses and validates the constant labels attached to every
// metric family exposed by the process (e.g. instance="node-1").
package labels

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	maxLabelNameLen           = 100
	maxConstLabelCount        = 8
	highCardinalitySampleSize = 64
)

var (
	// ErrMalformedPair is returned for entries that are not of the form key=value.
	ErrMalformedPair = errors.New("malformed constant label, expected key=value")
	// ErrTooManyLabels is returned when more than maxConstLabelCount labels are configured.
	ErrTooManyLabels = errors.New("too many constant labels")
	// ErrInvalidName is returned when a label name cannot be used even after sanitization.
	ErrInvalidName = errors.New("invalid label name")
)

var warnOnce sync.Map // label key -> struct{}

// ParseConstLabels converts "key=value" pairs into prometheus.Labels.
// Keys are sanitized to [a-zA-Z_][a-zA-Z0-9_]*; reserved "__" prefixes and
// keys colliding after sanitization are rejected. Values pass through unchanged.
func ParseConstLabels(pairs []string, log *slog.Logger) (prometheus.Labels, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	if len(pairs) > maxConstLabelCount {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyLabels, len(pairs), maxConstLabelCount)
	}

	parsed := make(prometheus.Labels, len(pairs))

	for _, pair := range pairs {
		rawKey, value, found := strings.Cut(pair, "=")
		rawKey = strings.TrimSpace(rawKey)

		if !found || rawKey == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedPair, pair)
		}

		key := SanitizeName(rawKey)

		switch {
		case len(key) > maxLabelNameLen:
			return nil, fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, rawKey, maxLabelNameLen)
		case strings.HasPrefix(key, "__"):
			return nil, fmt.Errorf("%w: %q uses reserved prefix '__'", ErrInvalidName, rawKey)
		}

		if _, exists := parsed[key]; exists {
			return nil, fmt.Errorf("%w: %q collides after sanitization (%s)", ErrInvalidName, rawKey, key)
		}

		parsed[key] = value

		maybeWarnHighCardinality(log, key, value)
	}

	return parsed, nil
}

// SanitizeName replaces any rune outside [A-Za-z0-9_] with '_' and prefixes
// '_' when the first rune is not a letter or underscore.
func SanitizeName(labelName string) string {
	if labelName == "" {
		return "_"
	}

	var builder strings.Builder
	builder.Grow(len(labelName) + 1)

	for index, runeVal := range labelName {
		isASCIILetter := runeVal < unicode.MaxASCII && unicode.IsLetter(runeVal)
		isASCIIDigit := runeVal >= '0' && runeVal <= '9'

		if index == 0 && isASCIIDigit {
			builder.WriteByte('_')
		}

		if runeVal == '_' || isASCIILetter || isASCIIDigit {
			builder.WriteRune(runeVal)
		} else {
			builder.WriteByte('_')
		}
	}

	return builder.String()
}

// maybeWarnHighCardinality logs once per key when a value looks like a UUID or
// a long hex token. Constant labels with such values are usually a mistake.
func maybeWarnHighCardinality(log *slog.Logger, labelKey, labelValue string) {
	if log == nil || !isLikelyHighCardinalityValue(labelValue) {
		return
	}

	if _, loaded := warnOnce.LoadOrStore(labelKey, struct{}{}); loaded {
		return
	}

	sample := labelValue
	if len(sample) > highCardinalitySampleSize {
		sample = sample[:highCardinalitySampleSize]
	}

	log.Warn("constant label value looks like an identifier",
		"label", labelKey,
		"sample_value", sample,
	)
}

func isLikelyHighCardinalityValue(value string) bool {
	valueLower := strings.ToLower(value)

	// 8-4-4-4-12 UUID
	if len(valueLower) == 36 {
		groups := strings.Split(valueLower, "-")
		if len(groups) == 5 && len(groups[0]) == 8 && len(groups[4]) == 12 &&
			isHexString(strings.Join(groups, "")) {
			return true
		}
	}

	return len(valueLower) >= 16 && isHexString(valueLower)
}

func isHexString(hexString string) bool {
	for _, ch := range hexString {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}

	return true
}
