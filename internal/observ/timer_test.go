package observ

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestNilTimerRecordsNothing(t *testing.T) {
	var tm *Timer
	tm.Begin("load", "")()
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	done := tm.Begin("load", "")
	done()
	done()
	tm.Begin("check", "lib")()
	end := tm.Begin("check", "app")
	time.Sleep(2 * time.Millisecond)
	end()

	r := tm.Report()
	if len(r.Phases) != 3 || r.Phases[2].Package != "app" {
		t.Fatalf("phases = %+v", r.Phases)
	}
	if r.Phases[2].DurationMS < 2 || r.TotalMS < r.Phases[2].DurationMS {
		t.Fatalf("durations = %+v", r)
	}
	slow := r.Slowest(5)
	if len(slow) != 2 || slow[0].Package != "app" {
		t.Fatalf("slowest = %+v", slow)
	}

	var buf bytes.Buffer
	r.WriteSummary(&buf)
	out := buf.String()
	if !strings.HasPrefix(out, "timings:\n") || !strings.Contains(out, "check app") || !strings.Contains(out, "  total") {
		t.Fatalf("summary:\n%s", out)
	}
}
