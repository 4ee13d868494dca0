package labels_test

import (
	"errors"
	"testing"

	"github.com/leinardi/safemode-monitoring/internal/labels"
)

func TestSanitizeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"instance":   "instance",
		"team.label": "team_label",
		"9lives":     "_9lives",
		"":           "_",
		"zone-a":     "zone_a",
	}

	for input, want := range cases {
		if got := labels.SanitizeName(input); got != want {
			t.Fatalf("SanitizeName(%q): got %q want %q", input, got, want)
		}
	}
}

func TestParseConstLabels(t *testing.T) {
	t.Parallel()

	got, err := labels.ParseConstLabels([]string{"instance=node-1", "team.label=ops", "empty="}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["instance"] != "node-1" {
		t.Fatalf("instance: got %q", got["instance"])
	}

	if got["team_label"] != "ops" {
		t.Fatalf("team_label: got %q", got["team_label"])
	}

	if value, ok := got["empty"]; !ok || value != "" {
		t.Fatalf("empty: got %q present=%v", value, ok)
	}

	if _, ok := got["team.label"]; ok {
		t.Fatal("unsanitized key team.label must not be present")
	}
}

func TestParseConstLabelsNil(t *testing.T) {
	t.Parallel()

	got, err := labels.ParseConstLabels(nil, nil)
	if err != nil || got != nil {
		t.Fatalf("got %v, %v want nil, nil", got, err)
	}
}

func TestParseConstLabelsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		pairs []string
		want  error
	}{
		{name: "missing equals", pairs: []string{"instance"}, want: labels.ErrMalformedPair},
		{name: "empty key", pairs: []string{"=value"}, want: labels.ErrMalformedPair},
		{name: "reserved prefix", pairs: []string{"__name__=x"}, want: labels.ErrInvalidName},
		{name: "collision", pairs: []string{"a.b=1", "a_b=2"}, want: labels.ErrInvalidName},
		{
			name:  "too many",
			pairs: []string{"a=1", "b=1", "c=1", "d=1", "e=1", "f=1", "g=1", "h=1", "i=1"},
			want:  labels.ErrTooManyLabels,
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := labels.ParseConstLabels(testCase.pairs, nil)
			if !errors.Is(err, testCase.want) {
				t.Fatalf("got %v want %v", err, testCase.want)
			}
		})
	}
}
