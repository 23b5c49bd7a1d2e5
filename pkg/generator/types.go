package generator

import (
	"encoding/json"
)

// Target 一次调用的目标服务和模型
type Target struct {
	BaseURL string
	Model   string
}

// RegenerateRequest 根据拒绝意见重新生成
type RegenerateRequest struct {
	Instruction string
	Input       string
	Output      string
	System      string
	Source      []string
	Feedback    []string
}

// Article 生成时引用的条文
type Article struct {
	Citation string
	Content  string
}

// ArticleRequest 根据条文生成新数据
type ArticleRequest struct {
	Articles []Article
	System   string
	Hint     string
}

// Turn 一轮历史对话
type Turn struct {
	Instruction string `json:"instruction"`
	Output      string `json:"output"`
}

// Candidate 生成结果，至少包含 instruction 和 output
type Candidate struct {
	Instruction string `json:"instruction"`
	Input       string `json:"input"`
	Output      string `json:"output"`
	History     []Turn `json:"history"`
}

// UnmarshalJSON 兼容 history 为 [[q, a]] 或对象数组两种格式
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Instruction string          `json:"instruction"`
		Input       string          `json:"input"`
		Output      string          `json:"output"`
		History     json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	c.Instruction = raw.Instruction
	c.Input = raw.Input
	c.Output = raw.Output
	c.History = nil

	if len(raw.History) == 0 || string(raw.History) == "null" {
		return nil
	}

	var pairs [][]string
	if err := json.Unmarshal(raw.History, &pairs); err == nil {
		for _, pair := range pairs {
			if len(pair) >= 2 {
				c.History = append(c.History, Turn{Instruction: pair[0], Output: pair[1]})
			}
		}
		return nil
	}

	var turns []Turn
	if err := json.Unmarshal(raw.History, &turns); err == nil {
		c.History = turns
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason,omitempty"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}
