package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestModuleFieldAndLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(false, &buf)
	t.Cleanup(func() { Init(false, nil) })

	lg := New("discovery")
	lg.Debug().Msg("hidden")
	lg.Info().Str("symbol", "NVDA").Msg("liked")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug event written at info level: %q", out)
	}
	if !strings.Contains(out, "liked") || !strings.Contains(out, "discovery") || !strings.Contains(out, "NVDA") {
		t.Errorf("missing fields in %q", out)
	}

	buf.Reset()
	Init(true, &buf)
	lg.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug event missing with debug enabled: %q", buf.String())
	}
}
