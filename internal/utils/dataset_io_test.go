package utils

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
)

func TestParseRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"JSON数组", `[{"instruction":"a","output":"b"},{"output":"c","history":[["q","a"]]}]`, 2, false},
		{"JSONL", "\xEF\xBB\xBF{\"output\":\"a\"}\n\n{\"output\":\"b\",\"source\":[\"s\"]}\n", 2, false},
		{"JSONL坏行", "{\"output\":\"a\"}\nnot json\n", 0, true},
		{"空文件", "  \n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseRecords([]byte(tt.content))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRecords() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(records) != tt.want {
				t.Errorf("len = %d, want %d", len(records), tt.want)
			}
		})
	}

	records, _ := ParseRecords([]byte(`{"output":"b","history":[["q","a"]]}`))
	if len(records[0].History) != 1 || records[0].History[0][1] != "a" {
		t.Errorf("history = %v", records[0].History)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []ExportRow{{ID: 1, Input: "问题,含逗号", Output: "回答\n多行", RawDatasetID: 7, ModelName: "m"}}
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, utf8BOM) {
		t.Fatal("缺少BOM")
	}

	parsed, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out, utf8BOM))).ReadAll()
	if err != nil {
		t.Fatalf("读取CSV失败: %v", err)
	}
	if len(parsed) != 2 || parsed[1][1] != "问题,含逗号" || parsed[1][2] != "回答\n多行" || parsed[1][3] != "7" {
		t.Errorf("parsed = %q", parsed)
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	rows := []ExportRow{{ID: 1, Output: "<b>"}, {ID: 2}}
	if err := WriteJSONL(&buf, rows); err != nil {
		t.Fatalf("WriteJSONL() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d", len(lines))
	}
	if !strings.Contains(lines[0], `"final_output":"<b>"`) {
		t.Errorf("line = %s", lines[0])
	}
}
