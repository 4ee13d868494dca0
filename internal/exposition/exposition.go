// Package exposition chooses a wire format from an Accept header and encodes
// metric families in it.
package exposition

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	mediaTypeText     = "text/plain"
)

// ErrWrite wraps any I/O failure while streaming the body. Headers may already
// have been sent when it is returned.
var ErrWrite = errors.New("write exposition")

// DefaultFormat is used when the Accept header is absent, empty or names no
// supported format: the Prometheus text format, version 0.0.4, with the
// process-wide name escaping scheme.
func DefaultFormat() expfmt.Format {
	return expfmt.NegotiateIncludingOpenMetrics(http.Header{})
}

// Negotiate maps a raw Accept header value to a supported format.
// It never fails: anything it does not recognize yields DefaultFormat.
// Supported: text/plain 0.0.4, the protobuf encodings (delimited, text,
// compact-text) and OpenMetrics text.
func Negotiate(accept string) expfmt.Format {
	header := http.Header{}
	header.Set(headerAccept, accept)

	format := expfmt.NegotiateIncludingOpenMetrics(header)

	// expfmt answers text for unmatched headers too, carrying any escaping
	// parameter found on the rejected entries.
	if format.FormatType() == expfmt.TypeTextPlain && !acceptsText(accept) {
		return DefaultFormat()
	}

	return format
}

func acceptsText(accept string) bool {
	for _, entry := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(entry, ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), mediaTypeText) {
			return true
		}
	}

	return false
}

// Write sets Content-Type and status 200, then encodes every family in format.
// OpenMetrics output is terminated with "# EOF". The response is flushed when
// the writer supports it.
func Write(responseWriter http.ResponseWriter, format expfmt.Format, families []*dto.MetricFamily) error {
	responseWriter.Header().Set(headerContentType, string(format))
	responseWriter.WriteHeader(http.StatusOK)

	encoder := expfmt.NewEncoder(responseWriter, format)

	for _, family := range families {
		encodeErr := encoder.Encode(family)
		if encodeErr != nil {
			return fmt.Errorf("%w: family %s: %w", ErrWrite, family.GetName(), encodeErr)
		}
	}

	if closer, ok := encoder.(expfmt.Closer); ok {
		closeErr := closer.Close()
		if closeErr != nil {
			return fmt.Errorf("%w: finalize: %w", ErrWrite, closeErr)
		}
	}

	if flusher, ok := responseWriter.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}
