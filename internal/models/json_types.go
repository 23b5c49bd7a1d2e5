package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList 以JSON文本存储的字符串列表
type StringList []string

// Scan 实现sql.Scanner接口
func (l *StringList) Scan(value interface{}) error {
	*l = StringList{}
	raw, err := rawJSON(value)
	if err != nil || raw == nil {
		return err
	}
	return json.Unmarshal(raw, l)
}

// Value 实现driver.Valuer接口
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

// HistoryEntry 一次被替换前的内容快照
type HistoryEntry struct {
	Instruction      string   `json:"instruction"`
	Input            string   `json:"input,omitempty"`
	Output           string   `json:"output"`
	ModelName        string   `json:"model_name,omitempty"`
	AcceptCount      int64    `json:"accept_count,omitempty"`
	RejectCount      int64    `json:"reject_count,omitempty"`
	RejectionReasons []string `json:"rejection_reasons,omitempty"`
}

// History 按时间先后排列的历史记录
type History []HistoryEntry

// Scan 实现sql.Scanner接口
func (h *History) Scan(value interface{}) error {
	*h = History{}
	raw, err := rawJSON(value)
	if err != nil || raw == nil {
		return err
	}
	return json.Unmarshal(raw, h)
}

// Value 实现driver.Valuer接口
func (h History) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	return string(b), err
}

// JSONValue 任意JSON值
type JSONValue json.RawMessage

// Scan 实现sql.Scanner接口
func (j *JSONValue) Scan(value interface{}) error {
	raw, err := rawJSON(value)
	if err != nil {
		return err
	}
	if raw == nil {
		*j = JSONValue("null")
		return nil
	}
	*j = append((*j)[:0], raw...)
	return nil
}

// Value 实现driver.Valuer接口
func (j JSONValue) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "null", nil
	}
	return string(j), nil
}

// MarshalJSON 原样输出
func (j JSONValue) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON 原样保存
func (j *JSONValue) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

func rawJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("不支持的JSON列类型: %T", value)
	}
}
