package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithFormatter(t *testing.T) {
	tests := []struct {
		env      string
		wantJSON bool
	}{
		{env: "", wantJSON: false},
		{env: "local", wantJSON: false},
		{env: "production", wantJSON: true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewWith(tt.env, "info", &buf).Info("hello")
		isJSON := json.Valid(bytes.TrimSpace(buf.Bytes()))
		if isJSON != tt.wantJSON {
			t.Errorf("env %q: json output = %v, want %v (%s)", tt.env, isJSON, tt.wantJSON, buf.String())
		}
	}
}

func TestNewWithLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"WARN":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
		"":      logrus.InfoLevel,
		"bogus": logrus.InfoLevel,
	}
	for in, want := range tests {
		if got := NewWith("prod", in, &bytes.Buffer{}).Logger.GetLevel(); got != want {
			t.Errorf("level %q: got %s, want %s", in, got, want)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	return m
}

func TestWithFileAndComponent(t *testing.T) {
	var buf bytes.Buffer
	NewWith("prod", "info", &buf).Component("pipeline").WithFile("run-1", "file-2", "call.mp3").Info("processing")
	m := decodeLine(t, &buf)
	for k, want := range map[string]string{"component": "pipeline", "run_id": "run-1", "file_id": "file-2", "file_name": "call.mp3"} {
		if m[k] != want {
			t.Errorf("%s = %v, want %s", k, m[k], want)
		}
	}
}

func TestWithRequestGeneratesID(t *testing.T) {
	var buf bytes.Buffer
	req := httptest.NewRequest("GET", "/records?q=x", nil)
	NewWith("prod", "info", &buf).WithRequest(req).Info("request")
	m := decodeLine(t, &buf)
	if id, _ := m["req_id"].(string); id == "" || m["path"] != "/records" {
		t.Fatalf("unexpected request fields %v", m)
	}

	buf.Reset()
	req.Header.Set("X-Request-ID", "abc")
	NewWith("prod", "info", &buf).WithRequest(req).Info("request")
	if m := decodeLine(t, &buf); m["req_id"] != "abc" {
		t.Fatalf("expected caller request id, got %v", m["req_id"])
	}
}

func TestWithErrorNilSafe(t *testing.T) {
	var buf bytes.Buffer
	l := NewWith("prod", "info", &buf)
	l.WithError(nil).Info("fine")
	if strings.Contains(buf.String(), `"error"`) {
		t.Fatalf("nil error should add no field: %s", buf.String())
	}
	buf.Reset()
	l.WithError(errors.New("boom")).Info("failed")
	if m := decodeLine(t, &buf); m["error"] != "boom" {
		t.Fatalf("error field = %v", m["error"])
	}
}
