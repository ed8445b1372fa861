package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/pawpyseed/doxsearch/internal/searchdata"
	"github.com/pawpyseed/doxsearch/internal/store"
	"github.com/pawpyseed/doxsearch/internal/symbolindex"
)

const sampleFile = "../searchdata/testdata/all_e.js"

func TestCommandsRegistered(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewQueryCmd(), "query", []string{"mode", "kind", "limit", "json"}},
		{NewValidateCmd(), "validate", []string{"json"}},
		{NewExportCmd(), "export", []string{"format", "output"}},
		{NewDiffCmd(), "diff", []string{"context", "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			if !strings.HasPrefix(tt.cmd.Use, tt.use) {
				t.Errorf("Expected Use to start with %q, got %q", tt.use, tt.cmd.Use)
			}
			if tt.cmd.Short == "" || tt.cmd.Example == "" {
				t.Error("Command missing description or example usage")
			}
			for _, flag := range tt.flags {
				if tt.cmd.Flags().Lookup(flag) == nil {
					t.Errorf("Flag %q not registered", flag)
				}
			}
		})
	}
}

func TestRunQuery_Prefix(t *testing.T) {
	var out bytes.Buffer
	if err := runQuery(&out, sampleFile, "proj_v", "", "", 10, false); err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"proj_value\n", "proj_value_helper\n", "../utils_8h.html#a603202fb14371112365efb898e246648", "(utils.h)"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunQuery_JSON(t *testing.T) {
	var out bytes.Buffer
	if err := runQuery(&out, sampleFile, "wave", "substring", "namespace", 10, true); err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}

	var hits []symbolindex.Hit
	if err := json.Unmarshal(out.Bytes(), &hits); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(hits) != 1 || hits[0].Name != "wavefunction" {
		t.Errorf("hits = %+v, want [wavefunction]", hits)
	}
}

func TestRunQuery_Fulltext(t *testing.T) {
	var out bytes.Buffer
	if err := runQuery(&out, sampleFile, "wavefunction", "fulltext", "", 5, true); err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}

	var hits []symbolindex.Hit
	if err := json.Unmarshal(out.Bytes(), &hits); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(hits) == 0 || len(hits) > 5 {
		t.Errorf("got %d hits, want 1..5", len(hits))
	}
}

func TestRunQuery_NoMatch(t *testing.T) {
	var out bytes.Buffer
	if err := runQuery(&out, sampleFile, "xyz", "", "", 10, false); err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}
	if !strings.Contains(out.String(), "No symbols match") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestRunQuery_InvalidFlags(t *testing.T) {
	var out bytes.Buffer
	if err := runQuery(&out, sampleFile, "p", "regex", "", 10, false); err == nil {
		t.Error("expected error for unknown mode")
	}
	if err := runQuery(&out, sampleFile, "p", "", "module", 10, false); err == nil {
		t.Error("expected error for unknown kind")
	}
	if err := runQuery(&out, filepath.Join(t.TempDir(), "missing"), "p", "", "", 10, false); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestRunValidate(t *testing.T) {
	// The published sample repeats the "pawpyseed" key
	var out bytes.Buffer
	err := runValidate(&out, sampleFile, true)
	if err == nil {
		t.Fatal("expected validation failure for duplicate key")
	}

	var report searchdata.Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if report.Entries != 55 || len(report.Issues) != 1 || report.Issues[0].Code != searchdata.CodeDuplicateKey {
		t.Errorf("unexpected report %+v", report)
	}

	// A clean file passes
	clean := filepath.Join(t.TempDir(), "all_0.js")
	data := "var searchData=[['ppot',['ppot',['../structppot.html',1,'']]]];"
	if err := os.WriteFile(clean, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runValidate(&out, clean, false); err != nil {
		t.Fatalf("runValidate failed on clean data: %v", err)
	}
	if !strings.Contains(out.String(), "valid") {
		t.Errorf("unexpected output %q", out.String())
	}

	// Malformed input is reported, not returned as a load failure
	broken := filepath.Join(t.TempDir(), "all_1.js")
	if err := os.WriteFile(broken, []byte("var searchData=[['ppot',"), 0644); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := runValidate(&out, broken, false); err == nil {
		t.Fatal("expected failure for malformed data")
	}
	if !strings.Contains(out.String(), "["+searchdata.CodeParse+"]") {
		t.Errorf("expected a parse issue, got %q", out.String())
	}
}

func TestRunExport_JSONL(t *testing.T) {
	output := filepath.Join(t.TempDir(), "symbols.jsonl")

	var out bytes.Buffer
	if err := runExport(&out, sampleFile, FormatJSONL, output); err != nil {
		t.Fatalf("runExport failed: %v", err)
	}

	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer file.Close()

	lines := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry searchdata.Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 55 {
		t.Errorf("exported %d lines, want 55", lines)
	}
}

func TestRunExport_JSONToStdout(t *testing.T) {
	var out bytes.Buffer
	if err := runExport(&out, sampleFile, FormatJSON, ""); err != nil {
		t.Fatalf("runExport failed: %v", err)
	}

	var entries []searchdata.Entry
	if err := json.Unmarshal(out.Bytes(), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 55 || entries[0].Key != "analysis" {
		t.Errorf("unexpected export: %d entries", len(entries))
	}
}

func TestRunExport_SQLite(t *testing.T) {
	output := filepath.Join(t.TempDir(), "symbols.db")

	var out bytes.Buffer
	if err := runExport(&out, sampleFile, FormatSQLite, output); err != nil {
		t.Fatalf("runExport failed: %v", err)
	}

	db, err := store.Open(output)
	if err != nil {
		t.Fatalf("failed to open export: %v", err)
	}
	defer db.Close()

	count, err := db.Count()
	if err != nil || count != 55 {
		t.Errorf("Count = %d, %v; want 55", count, err)
	}
}

func exportSnapshot(t *testing.T) string {
	t.Helper()
	output := filepath.Join(t.TempDir(), "symbols.db")
	var out bytes.Buffer
	if err := runExport(&out, sampleFile, FormatSQLite, output); err != nil {
		t.Fatalf("runExport failed: %v", err)
	}
	if !strings.Contains(out.String(), "Exported 55 entries") || !strings.Contains(out.String(), "schema v2") {
		t.Errorf("unexpected export output %q", out.String())
	}
	return output
}

func TestRunQuery_Snapshot(t *testing.T) {
	snapshot := exportSnapshot(t)

	tests := []struct {
		name string
		text string
		mode string
		kind string
		want []string
	}{
		{"prefix from name index", "proj_v", "prefix", "", []string{"proj_value", "proj_value_helper"}},
		{"duplicate keys merged", "pawpyseed", "prefix", "", []string{"pawpyseed"}},
		{"substring", "wave", "substring", "namespace", []string{"wavefunction"}},
		{"prefix with kind", "p", "prefix", "file", []string{"plots.py", "projector.h", "pseudoprojector.h"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := runQuery(&out, snapshot, tt.text, tt.mode, tt.kind, 10, true); err != nil {
				t.Fatalf("runQuery failed: %v", err)
			}
			var hits []symbolindex.Hit
			if err := json.Unmarshal(out.Bytes(), &hits); err != nil {
				t.Fatalf("invalid JSON output: %v", err)
			}
			var names []string
			for _, hit := range hits {
				names = append(names, hit.Name)
			}
			if strings.Join(names, ",") != strings.Join(tt.want, ",") {
				t.Errorf("hits = %v, want %v", names, tt.want)
			}
		})
	}

	// Merged duplicates keep both items
	var out bytes.Buffer
	if err := runQuery(&out, snapshot, "pawpyseed", "prefix", "", 1, true); err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}
	var hits []symbolindex.Hit
	if err := json.Unmarshal(out.Bytes(), &hits); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(hits) != 1 || len(hits[0].Items) != 2 {
		t.Errorf("hits = %+v, want one entry with two items", hits)
	}

	if err := runQuery(&out, filepath.Join(t.TempDir(), "missing.db"), "p", "", "", 10, false); err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestSnapshotCommands(t *testing.T) {
	snapshot := exportSnapshot(t)

	var out bytes.Buffer
	if err := runValidate(&out, snapshot, true); err == nil {
		t.Fatal("expected validation failure for duplicate key")
	}
	var report searchdata.Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if report.Entries != 55 || len(report.Issues) != 1 || report.Issues[0].Code != searchdata.CodeDuplicateKey {
		t.Errorf("unexpected report %+v", report)
	}

	out.Reset()
	if err := runDiff(&out, snapshot, sampleFile, 3, false); err != nil {
		t.Fatalf("runDiff failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "no changes" {
		t.Errorf("snapshot should match its source, got %q", out.String())
	}

	output := filepath.Join(t.TempDir(), "roundtrip.jsonl")
	out.Reset()
	if err := runExport(&out, snapshot, FormatJSONL, output); err != nil {
		t.Fatalf("runExport from snapshot failed: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 55 {
		t.Errorf("exported %d lines from snapshot, want 55", lines)
	}
}

func TestRunExport_InvalidFormat(t *testing.T) {
	var out bytes.Buffer
	if err := runExport(&out, sampleFile, "xml", ""); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := runExport(&out, sampleFile, FormatSQLite, ""); err == nil {
		t.Error("expected error for sqlite without output")
	}
}

func TestRunDiff(t *testing.T) {
	dir := t.TempDir()
	newFile := filepath.Join(dir, "all_e.js")
	data, err := os.ReadFile(sampleFile)
	if err != nil {
		t.Fatal(err)
	}
	changed := strings.Replace(string(data),
		"  ['pts',['pts',['../namespacepawpyseed_1_1core_1_1quad__check.html#a53e482efc400bb78e27b4df968420529',1,'pawpyseed::core::quad_check']]],\n",
		"", 1)
	if changed == string(data) {
		t.Fatal("fixture line not found")
	}
	if err := os.WriteFile(newFile, []byte(changed), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := runDiff(&out, sampleFile, newFile, 1, false); err != nil {
		t.Fatalf("runDiff failed: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "0 added, 1 removed, 0 changed") || !strings.Contains(text, "  - pts\n") {
		t.Errorf("unexpected diff output:\n%s", text)
	}

	out.Reset()
	if err := runDiff(&out, sampleFile, sampleFile, 3, false); err != nil {
		t.Fatalf("runDiff failed: %v", err)
	}
	if strings.TrimSpace(out.String()) != "no changes" {
		t.Errorf("unexpected output for identical inputs: %q", out.String())
	}
}
