package exposition_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leinardi/safemode-monitoring/internal/exposition"
)

const (
	acceptProtoDelimited = "application/vnd.google.protobuf;proto=io.prometheus.client.MetricFamily;encoding=delimited"
	acceptOpenMetrics    = "application/openmetrics-text; version=1.0.0; charset=utf-8"
)

func TestNegotiateIsTotal(t *testing.T) {
	t.Parallel()

	cases := []struct {
		accept string
		want   expfmt.FormatType
	}{
		{accept: "", want: expfmt.TypeTextPlain},
		{accept: "text/plain", want: expfmt.TypeTextPlain},
		{accept: "text/plain; version=0.0.4", want: expfmt.TypeTextPlain},
		{accept: "application/json", want: expfmt.TypeTextPlain},
		{accept: "*/*", want: expfmt.TypeTextPlain},
		{accept: "garbage;;;===", want: expfmt.TypeTextPlain},
		{accept: "image/png, application/xml", want: expfmt.TypeTextPlain},
		{accept: acceptProtoDelimited, want: expfmt.TypeProtoDelim},
		{accept: acceptOpenMetrics, want: expfmt.TypeOpenMetrics},
		{accept: "application/json, " + acceptProtoDelimited, want: expfmt.TypeProtoDelim},
	}

	for _, testCase := range cases {
		got := exposition.Negotiate(testCase.accept)
		assert.Equal(t, testCase.want, got.FormatType(), "accept %q -> %q", testCase.accept, got)
		assert.NotEmpty(t, string(got))
	}
}

func TestNegotiateDefaultMatchesDefaultFormat(t *testing.T) {
	t.Parallel()

	want := exposition.DefaultFormat()
	assert.True(t, strings.HasPrefix(string(want), "text/plain; version=0.0.4"), "got %q", want)

	for _, accept := range []string{
		"",
		"application/json",
		"application/unsupported",
		"*/*",
		"application/json; escaping=allow-utf-8",
	} {
		assert.Equal(t, want, exposition.Negotiate(accept), "accept %q", accept)
	}
}

func sampleFamilies(t *testing.T) []*dto.MetricFamily {
	t.Helper()

	registry := prometheus.NewRegistry()

	up := prometheus.NewGauge(prometheus.GaugeOpts{Name: "is_web_up", Help: "Tells whether web service is up"})
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "startup_steps_total",
		Help: "Startup steps completed.",
	}, []string{"step"})

	registry.MustRegister(up, requests)
	requests.WithLabelValues("db").Add(3)
	requests.WithLabelValues("es").Add(1.5)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 2)

	return families
}

func TestWriteTextRoundTrip(t *testing.T) {
	t.Parallel()

	families := sampleFamilies(t)
	recorder := httptest.NewRecorder()
	format := exposition.Negotiate("text/plain")

	require.NoError(t, exposition.Write(recorder, format, families))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, string(format), recorder.Header().Get("Content-Type"))
	assert.Contains(t, recorder.Body.String(), "is_web_up 0\n")

	var parser expfmt.TextParser

	parsed, err := parser.TextToMetricFamilies(bytes.NewReader(recorder.Body.Bytes()))
	require.NoError(t, err)
	require.Len(t, parsed, len(families))

	assertSameSamples(t, families, parsed)
}

func TestWriteProtoRoundTrip(t *testing.T) {
	t.Parallel()

	families := sampleFamilies(t)
	recorder := httptest.NewRecorder()
	format := exposition.Negotiate(acceptProtoDelimited)

	require.NoError(t, exposition.Write(recorder, format, families))

	decoder := expfmt.NewDecoder(bytes.NewReader(recorder.Body.Bytes()), expfmt.NewFormat(expfmt.TypeProtoDelim))
	parsed := make(map[string]*dto.MetricFamily)

	for {
		family := &dto.MetricFamily{}

		decodeErr := decoder.Decode(family)
		if errors.Is(decodeErr, io.EOF) {
			break
		}

		require.NoError(t, decodeErr)
		parsed[family.GetName()] = family
	}

	require.Len(t, parsed, len(families))
	assertSameSamples(t, families, parsed)
}

func TestWriteOpenMetricsTerminates(t *testing.T) {
	t.Parallel()

	recorder := httptest.NewRecorder()
	format := exposition.Negotiate(acceptOpenMetrics)

	require.NoError(t, exposition.Write(recorder, format, sampleFamilies(t)))

	assert.True(t, strings.HasPrefix(recorder.Header().Get("Content-Type"), "application/openmetrics-text"))
	assert.True(t, strings.HasSuffix(recorder.Body.String(), "# EOF\n"), "body: %q", recorder.Body.String())
}

type failingWriter struct {
	header http.Header
	status int
}

func (writer *failingWriter) Header() http.Header { return writer.header }

func (writer *failingWriter) WriteHeader(status int) { writer.status = status }

func (*failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteSurfacesIOErrors(t *testing.T) {
	t.Parallel()

	writer := &failingWriter{header: http.Header{}}

	err := exposition.Write(writer, exposition.DefaultFormat(), sampleFamilies(t))
	require.ErrorIs(t, err, exposition.ErrWrite)
	require.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, http.StatusOK, writer.status)
}

func assertSameSamples(t *testing.T, want []*dto.MetricFamily, got map[string]*dto.MetricFamily) {
	t.Helper()

	for _, family := range want {
		parsedFamily, ok := got[family.GetName()]
		require.True(t, ok, "family %s missing", family.GetName())
		require.Len(t, parsedFamily.GetMetric(), len(family.GetMetric()))

		for index, metric := range family.GetMetric() {
			parsedMetric := parsedFamily.GetMetric()[index]

			switch family.GetType() {
			case dto.MetricType_GAUGE:
				assert.InDelta(t, metric.GetGauge().GetValue(), parsedMetric.GetGauge().GetValue(), 0)
			case dto.MetricType_COUNTER:
				assert.InDelta(t, metric.GetCounter().GetValue(), parsedMetric.GetCounter().GetValue(), 0)
			default:
				t.Fatalf("unexpected type %v", family.GetType())
			}
		}
	}
}
