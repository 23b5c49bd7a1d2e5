package generator

import (
	"fmt"
	"strings"
)

const systemPrompt = `你是一名训练数据编写专家。请只输出一个JSON对象，不要输出其他内容，格式如下：
{"instruction": "问题或指令", "input": "补充输入，可为空字符串", "output": "高质量的回答", "history": []}`

func regenerateMessages(req RegenerateRequest) []chatMessage {
	var b strings.Builder

	b.WriteString("下面这条训练数据被审核专家拒绝，请根据审核意见重新编写。\n\n")
	if req.System != "" {
		fmt.Fprintf(&b, "系统提示词：\n%s\n\n", req.System)
	}
	fmt.Fprintf(&b, "原指令：\n%s\n\n", req.Instruction)
	if req.Input != "" {
		fmt.Fprintf(&b, "原输入：\n%s\n\n", req.Input)
	}
	if req.Output != "" {
		fmt.Fprintf(&b, "被拒绝的回答：\n%s\n\n", req.Output)
	}
	if len(req.Source) > 0 {
		fmt.Fprintf(&b, "参考来源：\n%s\n\n", bulletList(req.Source))
	}
	if len(req.Feedback) > 0 {
		fmt.Fprintf(&b, "审核意见：\n%s\n\n", bulletList(req.Feedback))
	}
	b.WriteString("请保持主题不变，修正审核意见指出的问题。")

	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func articleMessages(req ArticleRequest) []chatMessage {
	var b strings.Builder

	b.WriteString("请根据以下条文编写一条训练数据，回答必须引用条文内容。\n\n")
	for _, article := range req.Articles {
		fmt.Fprintf(&b, "【%s】\n%s\n\n", article.Citation, article.Content)
	}
	if req.System != "" {
		fmt.Fprintf(&b, "回答应符合以下系统提示词：\n%s\n\n", req.System)
	}
	if req.Hint != "" {
		fmt.Fprintf(&b, "额外要求：\n%s\n", req.Hint)
	}

	return []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}

func bulletList(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}
