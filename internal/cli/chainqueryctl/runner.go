package chainqueryctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type command struct {
	method string
	path   string
	body   any
}

// Run drives one CLI invocation against the API and renders the response.
// Result tables are printed as tables; everything else as indented JSON.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("chainqueryctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "ChainQuery API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 2*time.Minute), "HTTP timeout (e.g. 90s)")
	notes := fs.String("notes", "", "Notes attached to positive feedback")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	cmd, err := parseCommand(fs.Arg(0), fs.Args()[1:], *notes)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	endpoint := strings.TrimRight(*baseURL, "/") + cmd.path
	code, responseBody, err := doRequest(ctx, client, cmd.method, endpoint, *apiKey, cmd.body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	render(stdout, responseBody)
	return 0
}

func parseCommand(name string, rest []string, notes string) (command, error) {
	switch strings.TrimSpace(name) {
	case "health":
		return command{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return command{method: http.MethodGet, path: "/v1/ready"}, nil
	case "session":
		return command{method: http.MethodGet, path: "/v1/session"}, nil
	case "ask":
		question := strings.TrimSpace(strings.Join(rest, " "))
		if question == "" {
			return command{}, fmt.Errorf("ask requires a question")
		}
		return command{method: http.MethodPost, path: "/v1/session/query", body: map[string]string{"query": question}}, nil
	case "run":
		// With no argument the API executes the generated statement.
		return command{method: http.MethodPost, path: "/v1/session/run", body: map[string]string{"sql": strings.Join(rest, " ")}}, nil
	case "feedback":
		if len(rest) != 1 || (rest[0] != "up" && rest[0] != "down") {
			return command{}, fmt.Errorf("feedback requires exactly one of: up, down")
		}
		return command{method: http.MethodPost, path: "/v1/session/feedback", body: map[string]any{
			"positive": rest[0] == "up",
			"notes":    notes,
		}}, nil
	case "summary":
		return command{method: http.MethodPost, path: "/v1/session/summary"}, nil
	case "examples":
		return command{method: http.MethodGet, path: "/v1/examples"}, nil
	case "export":
		format := "csv"
		if len(rest) > 0 {
			format = rest[0]
		}
		return command{method: http.MethodPost, path: "/v1/export", body: map[string]string{"format": format}}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", name)
	}
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, responseBody, nil
}

func render(stdout io.Writer, raw []byte) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err == nil {
		if rendered := renderSessionTable(stdout, payload); rendered {
			return
		}
	}
	if pretty, ok := prettyJSON(raw); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return
	}
	if len(raw) > 0 {
		_, _ = fmt.Fprintln(stdout, string(raw))
	}
}

// renderSessionTable prints a completed result as a table followed by the
// session metadata. It reports false when the payload carries no rows, so
// the caller falls back to JSON.
func renderSessionTable(stdout io.Writer, payload map[string]any) bool {
	state, ok := payload["session"].(map[string]any)
	if !ok {
		return false
	}
	result, ok := state["result"].(map[string]any)
	if !ok {
		return false
	}
	columns, ok := result["columns"].([]any)
	if !ok || len(columns) == 0 {
		return false
	}
	rows, _ := result["rows"].([]any)

	header := make([]string, len(columns))
	for i, column := range columns {
		header[i] = fmt.Sprint(column)
	}

	table := tablewriter.NewWriter(stdout)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(header)
	for _, row := range rows {
		cells, ok := row.([]any)
		if !ok {
			continue
		}
		record := make([]string, len(cells))
		for i, cell := range cells {
			if cell == nil {
				continue
			}
			record[i] = fmt.Sprint(cell)
		}
		table.Append(record)
	}
	table.Render()

	if summary, ok := state["summary"].(string); ok && summary != "" {
		_, _ = fmt.Fprintf(stdout, "\n%s\n", summary)
	}
	if executed, ok := state["executed_sql"].(string); ok && executed != "" {
		_, _ = fmt.Fprintf(stdout, "\nsql: %s\n", executed)
	}
	return true
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: chainqueryctl [flags] <command>")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health               GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  session              GET /v1/session")
	_, _ = fmt.Fprintln(w, "  ask <question>       POST /v1/session/query")
	_, _ = fmt.Fprintln(w, "  run [sql]            POST /v1/session/run (generated SQL when omitted)")
	_, _ = fmt.Fprintln(w, "  feedback up|down     POST /v1/session/feedback")
	_, _ = fmt.Fprintln(w, "  summary              POST /v1/session/summary")
	_, _ = fmt.Fprintln(w, "  examples             GET /v1/examples")
	_, _ = fmt.Fprintln(w, "  export [csv|parquet] POST /v1/export")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
