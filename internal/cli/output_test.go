package cli

import (
	"io"
	"testing"
)

func TestFormatChangeSignsBothValues(t *testing.T) {
	out := &Output{writer: io.Discard}

	cases := []struct {
		change, pct float64
		want        string
	}{
		{15.40, 1.25, "+15.40 (+1.25%)"},
		{-3.20, -0.26, "-3.20 (-0.26%)"},
		{0, 0, "+0.00 (+0.00%)"},
	}
	for _, c := range cases {
		if got := out.FormatChange(c.change, c.pct); got != c.want {
			t.Errorf("FormatChange(%v, %v) = %q, want %q", c.change, c.pct, got, c.want)
		}
	}
}
