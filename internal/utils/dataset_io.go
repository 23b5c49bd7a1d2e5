package utils

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const utf8BOM = "\xEF\xBB\xBF"

// Record 导入的一条数据，兼容 alpaca 格式
type Record struct {
	Instruction string     `json:"instruction"`
	Input       string     `json:"input"`
	Output      string     `json:"output"`
	System      string     `json:"system"`
	History     [][]string `json:"history"`
	Source      []string   `json:"source"`
	ModelName   string     `json:"model_name"`
}

// ParseRecords 解析JSON数组或JSONL格式的数据
func ParseRecords(content []byte) ([]Record, error) {
	content = bytes.TrimPrefix(content, []byte(utf8BOM))
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("文件内容为空")
	}

	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("解析JSON数组失败: %w", err)
		}
		return records, nil
	}

	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record Record
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			return nil, fmt.Errorf("第%d行不是合法的JSON: %w", lineNo, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}

	return records, nil
}

// ExportRow 导出的一条最终数据
type ExportRow struct {
	ID           uint   `json:"id"`
	Input        string `json:"original_input"`
	Output       string `json:"final_output"`
	RawDatasetID uint   `json:"raw_dataset_id"`
	ModelName    string `json:"model_name"`
	CreatedAt    string `json:"created_at"`
}

// WriteJSONL 以JSONL格式写出
func WriteJSONL(w io.Writer, rows []ExportRow) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("JSON序列化失败: %w", err)
		}
	}
	return nil
}

// WriteCSV 以CSV格式写出，带UTF-8 BOM以便Excel正确识别中文
func WriteCSV(w io.Writer, rows []ExportRow) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "original_input", "final_output", "raw_dataset_id", "model_name", "created_at"}); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}

	for _, row := range rows {
		record := []string{
			strconv.FormatUint(uint64(row.ID), 10),
			row.Input,
			row.Output,
			strconv.FormatUint(uint64(row.RawDatasetID), 10),
			row.ModelName,
			row.CreatedAt,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
