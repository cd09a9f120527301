package gate

import (
	"strings"
	"testing"
)

func TestAdmit(t *testing.T) {
	g := Default()
	tests := []struct {
		name string
		d    *float64
		want bool
	}{
		{"unknown", nil, false},
		{"zero", f(0), false},
		{"short", f(45), false},
		{"boundary", f(200.0), false},
		{"just over", f(200.01), true},
		{"long", f(300), true},
	}
	for _, tt := range tests {
		if got := g.Admit(tt.d); got != tt.want {
			t.Errorf("%s: Admit = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCustomThreshold(t *testing.T) {
	g := Gate{MinSeconds: 10}
	if !g.Admit(f(10.5)) || g.Admit(f(10)) {
		t.Fatal("custom threshold not honoured")
	}
}

func TestShortfall(t *testing.T) {
	g := Default()
	msg := g.Shortfall("short.wav", f(45))
	if msg != "The call duration for 'short.wav' is 45 seconds, which is less than the required 200 seconds." {
		t.Fatalf("unexpected message %q", msg)
	}
	if !strings.Contains(g.Shortfall("blank.mp3", nil), "could not be determined") {
		t.Fatal("unknown duration should be described as undetermined")
	}
}

func f(v float64) *float64 { return &v }
