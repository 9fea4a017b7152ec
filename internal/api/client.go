package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/utils"
)

const (
	DefaultURL     = "http://127.0.0.1:1234/v1/chat/completions"
	DefaultModel   = "google/gemma-3-12b-instruct"
	DefaultTimeout = 60 * time.Second
)

// ErrNoChoices 表示响应中没有可用的选项
var ErrNoChoices = errors.New("response has no choices")

// APIError 表示 API 请求错误，包含状态码和错误信息
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API请求失败 (状态码: %d): %s", e.StatusCode, e.Message)
}

// 全局共享的 Transport，实现连接池化
var (
	sharedTransport *http.Transport
	transportOnce   sync.Once
)

func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	})
	return sharedTransport
}

// Options 客户端配置
type Options struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// Doer 为空时使用带超时的共享 http.Client
	Doer utils.Doer
}

type Client struct {
	url    string
	apiKey string
	client utils.Doer
}

// NewClient 创建 OpenAI 兼容接口的客户端（LM Studio、Ollama 等本地服务）
func NewClient(opts Options) *Client {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	doer := opts.Doer
	if doer == nil {
		doer = &http.Client{
			// 本地模型首个 token 可能很慢，只设置整体超时
			Timeout:   opts.Timeout,
			Transport: getSharedTransport(),
		}
	}

	return &Client{
		url:    opts.URL,
		apiKey: opts.APIKey,
		client: doer,
	}
}

// URL 返回请求地址
func (c *Client) URL() string {
	return c.url
}

// ChatCompletion 发送一次非流式聊天补全请求
func (c *Client) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bodyBytes),
		}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &chatResp, nil
}

// Complete 发送请求并返回第一个选项的文本
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	content, ok := resp.FirstContent()
	if !ok {
		return "", ErrNoChoices
	}
	return content, nil
}
