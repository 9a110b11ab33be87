package weather

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
)

const moscowJSON = `{
	"location": {"name": "Moscow", "country": "Russia"},
	"current": {
		"temp_c": 5.0,
		"wind_kph": 10.0,
		"condition": {"text": "Clear", "code": 1000},
		"feelslike_c": 3.0
	}
}`

const moscowReport = "Weather in city Moscow\n" +
	"Temperature: 5.0°C\n" +
	"Wind: 10.0 Kph\n" +
	"Condition: Clear\n" +
	"Feels like: 3.0°C"

func newUpstream(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if r.URL.Query().Get("key") == "" {
			t.Errorf("Expected key query parameter")
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected Accept: application/json, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callTool(t *testing.T, tool *Tool, args string) *mcp.CallToolResult {
	t.Helper()
	result, err := tool.Call(context.Background(), json.RawMessage(args))
	if err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("Expected one content item, got %d", len(result.Content))
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		t.Fatalf("Expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func TestCurrentFormatsReport(t *testing.T) {
	var hits int32
	upstream := newUpstream(t, http.StatusOK, moscowJSON, &hits)
	tool := NewTool(NewClient(upstream.URL, "secret", zerolog.Nop()), zerolog.Nop())

	result := callTool(t, tool, `{"city_name":"Moscow"}`)
	if result.IsError {
		t.Error("Expected successful result")
	}
	if got := resultText(t, result); got != moscowReport {
		t.Errorf("Unexpected report:\n%s\nwant:\n%s", got, moscowReport)
	}
	if hits != 1 {
		t.Errorf("Expected 1 upstream call, got %d", hits)
	}
}

func TestCurrentSendsCityAndKey(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "New York" {
			t.Errorf("Expected q=New York, got %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("Expected key=secret, got %q", got)
		}
		w.Write([]byte(moscowJSON))
	}))
	defer upstream.Close()

	client := NewClient(upstream.URL, "secret", zerolog.Nop())
	if _, err := client.Current(context.Background(), "New York"); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
}

func TestMissingAPIKey(t *testing.T) {
	var hits int32
	upstream := newUpstream(t, http.StatusOK, moscowJSON, &hits)
	tool := NewTool(NewClient(upstream.URL, "", zerolog.Nop()), zerolog.Nop())

	result := callTool(t, tool, `{"city_name":"Moscow"}`)
	if got := resultText(t, result); got != "Error: can't find API KEY" {
		t.Errorf("Unexpected text %q", got)
	}
	if !result.IsError {
		t.Error("Expected error result")
	}
	if hits != 0 {
		t.Errorf("Expected no upstream calls, got %d", hits)
	}
}

func TestMissingAPIKeyCheckedBeforeArguments(t *testing.T) {
	tool := NewTool(NewClient("http://127.0.0.1:1", "", zerolog.Nop()), zerolog.Nop())

	for _, args := range []string{`{}`, `{"city_name":""}`, `[1,2]`} {
		if got := resultText(t, callTool(t, tool, args)); got != "Error: can't find API KEY" {
			t.Errorf("args %s: unexpected text %q", args, got)
		}
	}
}

func TestIntegerFieldsRenderWithDecimal(t *testing.T) {
	body := `{"location":{"name":"Moscow"},"current":{"temp_c":5,"wind_kph":10,"condition":{"text":"Clear"},"feelslike_c":3}}`
	upstream := newUpstream(t, http.StatusOK, body, nil)
	tool := NewTool(NewClient(upstream.URL, "secret", zerolog.Nop()), zerolog.Nop())

	if got := resultText(t, callTool(t, tool, `{"city_name":"Moscow"}`)); got != moscowReport {
		t.Errorf("Unexpected report:\n%s\nwant:\n%s", got, moscowReport)
	}
}

func TestUpstreamErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"not found", http.StatusNotFound, `{"error":{"code":1006,"message":"No matching location found."}}`, "No matching location found."},
		{"server error", http.StatusInternalServerError, `oops`, "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := newUpstream(t, tt.status, tt.body, nil)
			tool := NewTool(NewClient(upstream.URL, "secret", zerolog.Nop()), zerolog.Nop())

			got := resultText(t, callTool(t, tool, `{"city_name":"Atlantis"}`))
			if !strings.HasPrefix(got, "Error: ") {
				t.Errorf("Expected 'Error: ' prefix, got %q", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Expected %q in %q", tt.want, got)
			}
			if strings.Contains(got, "secret") {
				t.Errorf("API key leaked into %q", got)
			}
		})
	}
}

func TestTransportFailureHidesKey(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	_, err := NewClient(url, "secret", zerolog.Nop()).Current(context.Background(), "Paris")
	werr, ok := err.(*Error)
	if !ok {
		t.Fatalf("Expected *Error, got %T", err)
	}
	if werr.Kind != KindHTTP {
		t.Errorf("Expected KindHTTP, got %v", werr.Kind)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("API key leaked into %q", err.Error())
	}
}

func TestMissingField(t *testing.T) {
	body := `{"location":{"name":"Moscow"},"current":{"wind_kph":10.0,"condition":{"text":"Clear"},"feelslike_c":3.0}}`
	upstream := newUpstream(t, http.StatusOK, body, nil)
	tool := NewTool(NewClient(upstream.URL, "secret", zerolog.Nop()), zerolog.Nop())

	got := resultText(t, callTool(t, tool, `{"city_name":"Moscow"}`))
	if !strings.HasPrefix(got, "Error in format data from API: ") {
		t.Errorf("Expected format error prefix, got %q", got)
	}
	if !strings.Contains(got, "current.temp_c") {
		t.Errorf("Expected missing field name in %q", got)
	}
}

func TestNonNumericField(t *testing.T) {
	body := strings.Replace(moscowJSON, `"wind_kph": 10.0`, `"wind_kph": "calm"`, 1)
	upstream := newUpstream(t, http.StatusOK, body, nil)

	_, err := NewClient(upstream.URL, "secret", zerolog.Nop()).Current(context.Background(), "Moscow")
	if werr, ok := err.(*Error); !ok || werr.Kind != KindFormat {
		t.Errorf("Expected format error, got %v", err)
	}
}

func TestInvalidJSON(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, `<html>`, nil)
	tool := NewTool(NewClient(upstream.URL, "secret", zerolog.Nop()), zerolog.Nop())

	got := resultText(t, callTool(t, tool, `{"city_name":"Moscow"}`))
	if !strings.HasPrefix(got, "Unexpected error: ") {
		t.Errorf("Expected unexpected error prefix, got %q", got)
	}
}

func TestToolArguments(t *testing.T) {
	tool := NewTool(NewClient("http://127.0.0.1:1", "secret", zerolog.Nop()), zerolog.Nop())

	for _, args := range []string{`{}`, `{"city_name":"  "}`} {
		result := callTool(t, tool, args)
		if got := resultText(t, result); got != "Error: city_name is required" {
			t.Errorf("args %s: unexpected text %q", args, got)
		}
	}

	result := callTool(t, tool, `[1,2]`)
	if !strings.HasPrefix(resultText(t, result), "Error: invalid arguments") {
		t.Errorf("Unexpected text %q", resultText(t, result))
	}
}

func TestObserver(t *testing.T) {
	upstream := newUpstream(t, http.StatusOK, moscowJSON, nil)
	var outcomes []string
	client := NewClient(upstream.URL, "secret", zerolog.Nop(),
		WithTimeout(time.Second),
		WithObserver(func(outcome string, _ time.Duration) {
			outcomes = append(outcomes, outcome)
		}),
	)

	if _, err := client.Current(context.Background(), "Moscow"); err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0] != "success" {
		t.Errorf("Expected one success outcome, got %v", outcomes)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		5:     "5.0",
		10.5:  "10.5",
		-3:    "-3.0",
		0:     "0.0",
		21.25: "21.25",
	}
	for in, want := range tests {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}
