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

package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// plainTextHandler writes one line per record:
//
//	level=INFO metrics served format=text/plain remote=10.0.0.7:51234
//
// The message is written raw (no msg= key). Group attributes are flattened
// into dotted keys (http.status=200).
type plainTextHandler struct {
	output      io.Writer
	leveler     slog.Leveler
	includeTime bool

	prefix string      // group prefix applied to attrs added after WithGroup
	attrs  []slog.Attr // attrs captured by WithAttrs, already qualified

	// shared by all handlers derived from the same root
	mutex *sync.Mutex
}

func newPlainTextHandler(output io.Writer, level slog.Leveler, includeTime bool) *plainTextHandler {
	return &plainTextHandler{
		output:      output,
		leveler:     level,
		includeTime: includeTime,
		mutex:       &sync.Mutex{},
	}
}

func (handler *plainTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.leveler.Level()
}

//nolint:gocritic // slog.Handler requires slog.Record by value.
func (handler *plainTextHandler) Handle(_ context.Context, record slog.Record) error {
	var buffer bytes.Buffer

	if handler.includeTime && !record.Time.IsZero() {
		buffer.WriteString("time=")
		buffer.WriteString(record.Time.Format(time.RFC3339Nano))
		buffer.WriteByte(' ')
	}

	buffer.WriteString("level=")
	buffer.WriteString(record.Level.String())

	if record.Message != "" {
		buffer.WriteByte(' ')
		buffer.WriteString(record.Message)
	}

	for _, attribute := range handler.attrs {
		writeAttr(&buffer, "", attribute)
	}

	record.Attrs(func(attribute slog.Attr) bool {
		writeAttr(&buffer, handler.prefix, attribute)

		return true
	})

	buffer.WriteByte('\n')

	handler.mutex.Lock()
	_, writeErr := handler.output.Write(buffer.Bytes())
	handler.mutex.Unlock()

	if writeErr != nil {
		return fmt.Errorf("plain handler write: %w", writeErr)
	}

	return nil
}

func (handler *plainTextHandler) WithAttrs(attributes []slog.Attr) slog.Handler {
	if len(attributes) == 0 {
		return handler
	}

	derived := *handler
	derived.attrs = append([]slog.Attr(nil), handler.attrs...)

	for _, attribute := range attributes {
		attribute.Key = handler.prefix + attribute.Key
		derived.attrs = append(derived.attrs, attribute)
	}

	return &derived
}

func (handler *plainTextHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return handler
	}

	derived := *handler
	derived.prefix = handler.prefix + name + "."

	return &derived
}

// writeAttr writes " key=value", expanding groups into dotted keys.
func writeAttr(buffer *bytes.Buffer, prefix string, attribute slog.Attr) {
	value := attribute.Value.Resolve()

	if value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attribute.Key != "" {
			groupPrefix += attribute.Key + "."
		}

		for _, child := range value.Group() {
			writeAttr(buffer, groupPrefix, child)
		}

		return
	}

	if attribute.Key == "" {
		return
	}

	buffer.WriteByte(' ')
	buffer.WriteString(prefix)
	buffer.WriteString(attribute.Key)
	buffer.WriteByte('=')
	writeValue(buffer, value)
}

func writeValue(buffer *bytes.Buffer, value slog.Value) {
	switch value.Kind() {
	case slog.KindString:
		text := value.String()
		if text == "" || strings.ContainsAny(text, " \t\"=") {
			buffer.WriteString(strconv.Quote(text))
		} else {
			buffer.WriteString(text)
		}
	case slog.KindInt64:
		buffer.WriteString(strconv.FormatInt(value.Int64(), 10))
	case slog.KindUint64:
		buffer.WriteString(strconv.FormatUint(value.Uint64(), 10))
	case slog.KindFloat64:
		buffer.WriteString(strconv.FormatFloat(value.Float64(), 'g', -1, 64))
	case slog.KindBool:
		buffer.WriteString(strconv.FormatBool(value.Bool()))
	case slog.KindTime:
		buffer.WriteString(value.Time().Format(time.RFC3339Nano))
	case slog.KindDuration:
		buffer.WriteString(value.Duration().String())
	default:
		fmt.Fprint(buffer, value.Any())
	}
}
