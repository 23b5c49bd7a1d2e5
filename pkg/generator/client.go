package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"review-go/internal/apperr"

	"github.com/sirupsen/logrus"
)

// Options 客户端参数
type Options struct {
	APIKey      string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Client OpenAI兼容接口（/chat/completions）的文本生成客户端，Ollama 的 /v1 接口同样适用
type Client struct {
	httpClient *http.Client
	opts       Options
	limiter    Limiter
	logger     logrus.FieldLogger
}

// NewClient 创建生成客户端，limiter 为空时不限制并发
func NewClient(opts Options, limiter Limiter, logger logrus.FieldLogger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		opts:       opts,
		limiter:    limiter,
		logger:     logger,
	}
}

// Regenerate 根据审核意见重新生成数据
func (c *Client) Regenerate(ctx context.Context, target Target, req RegenerateRequest) (*Candidate, error) {
	return c.generate(ctx, target, regenerateMessages(req), req.Instruction)
}

// FromArticles 根据条文生成新数据
func (c *Client) FromArticles(ctx context.Context, target Target, req ArticleRequest) (*Candidate, error) {
	return c.generate(ctx, target, articleMessages(req), "")
}

func (c *Client) generate(ctx context.Context, target Target, messages []chatMessage, fallbackInstruction string) (*Candidate, error) {
	if target.Model == "" {
		return nil, apperr.UpstreamGeneration("未指定生成模型", fmt.Errorf("empty model"))
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx, target.Model); err != nil {
			return nil, apperr.UpstreamGeneration("获取生成槽位失败", err)
		}
		defer c.limiter.Release(context.Background(), target.Model)
	}

	start := time.Now()
	content, err := c.chat(ctx, target, messages)
	if err != nil {
		c.logger.WithError(err).WithField("model", target.Model).Error("调用生成服务失败")
		return nil, apperr.UpstreamGeneration("调用生成服务失败", err)
	}

	candidate := parseCandidate(content, fallbackInstruction)
	if candidate.Output == "" {
		return nil, apperr.UpstreamGeneration("生成服务返回空内容", fmt.Errorf("empty output"))
	}

	c.logger.WithFields(logrus.Fields{
		"model":    target.Model,
		"duration": time.Since(start).String(),
	}).Info("生成完成")
	return &candidate, nil
}

func (c *Client) chat(ctx context.Context, target Target, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       target.Model,
		Messages:    messages,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("序列化请求失败: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, endpoint(target.BaseURL, "/chat/completions"), body)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("响应中没有结果")
	}
	return result.Choices[0].Message.Content, nil
}

// ListModels 获取生成服务上可用的模型
func (c *Client) ListModels(ctx context.Context, baseURL string) ([]string, error) {
	respBody, err := c.do(ctx, http.MethodGet, endpoint(baseURL, "/models"), nil)
	if err != nil {
		return nil, apperr.UpstreamGeneration("获取模型列表失败", err)
	}

	var result modelsResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apperr.UpstreamGeneration("解析模型列表失败", err)
	}

	names := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		names = append(names, m.ID)
	}
	return names, nil
}

// Ping 检查生成服务是否可达
func (c *Client) Ping(ctx context.Context, baseURL string) error {
	_, err := c.ListModels(ctx, baseURL)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API返回错误: status=%d, body=%s", resp.StatusCode, truncate(string(respBody), 512))
	}
	return respBody, nil
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
