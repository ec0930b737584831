package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TraceSummary aggregates a JSON session log written with --log-json.
type TraceSummary struct {
	SessionID    string         `json:"sessionId"`
	TotalEvents  int            `json:"totalEvents"`
	Units        int            `json:"units"`
	UnitsByKind  map[string]int `json:"unitsByKind"`
	Errors       int            `json:"errors"`
	ErrorsByCode map[string]int `json:"errorsByCode"`
	Halted       bool           `json:"halted"`
	StartTime    string         `json:"startTime,omitempty"`
	EndTime      string         `json:"endTime,omitempty"`
	DurationMs   float64        `json:"durationMs"`
}

type traceEvent struct {
	Message string `json:"message"`
	Session string `json:"session"`
	Time    string `json:"time"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
}

func cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: imp trace <log.jsonl> [--json|--text]")
		return 1
	}

	f, err := os.Open(file)
	if err != nil {
		printIOError(fmt.Sprintf("cannot read file: %s", file), false)
		return 1
	}
	defer f.Close()

	summary := computeTraceSummary(f)
	if textOutput {
		printTraceSummaryText(os.Stdout, summary)
		return 0
	}
	b, err := json.Marshal(summary)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(string(b))
	return 0
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		UnitsByKind:  make(map[string]int),
		ErrorsByCode: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // console output or truncated lines
		}

		summary.TotalEvents++
		if summary.SessionID == "" {
			summary.SessionID = event.Session
		}
		if event.Time != "" {
			if summary.StartTime == "" {
				summary.StartTime = event.Time
			}
			summary.EndTime = event.Time
		}

		switch event.Message {
		case "unit evaluated":
			summary.Units++
			summary.UnitsByKind[event.Kind]++
		case "runtime error":
			summary.Errors++
			code := event.Code
			if code == "" {
				code = "unknown"
			}
			summary.ErrorsByCode[code]++
		case "halted":
			summary.Halted = true
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := time.Parse(time.RFC3339Nano, summary.StartTime)
		end, err2 := time.Parse(time.RFC3339Nano, summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Milliseconds())
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Session: %s\n", s.SessionID)
	fmt.Fprintf(w, "Events: %s\n", humanize.Comma(int64(s.TotalEvents)))
	fmt.Fprintf(w, "Units: %s\n", humanize.Comma(int64(s.Units)))
	for _, kind := range sortedKeys(s.UnitsByKind) {
		fmt.Fprintf(w, "  %s: %d\n", kind, s.UnitsByKind[kind])
	}
	fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	for _, code := range sortedKeys(s.ErrorsByCode) {
		fmt.Fprintf(w, "  %s: %d\n", code, s.ErrorsByCode[code])
	}
	if s.Halted {
		fmt.Fprintln(w, "Halted: yes")
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.0fms\n", s.DurationMs)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
