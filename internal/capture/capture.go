// Package capture 截取编辑器窗口画面并编码为 data URI，供多模态模型作为上下文
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"time"
)

const dataURIPrefix = "data:image/png;base64,"

var (
	// ErrNoWindow 没有匹配的窗口、窗口区域无效或窗口已关闭
	ErrNoWindow = errors.New("no matching window")
	// ErrUnsupported 当前构建不包含截图后端（需要 -tags capture）
	ErrUnsupported = errors.New("screen capture not supported in this build")
)

// Shot 一次截图结果
type Shot struct {
	DataURI string
	Image   image.Image
	Window  string
	At      time.Time
}

// Capturer 截取目标窗口
type Capturer interface {
	Capture(ctx context.Context) (*Shot, error)
}

// Window 顶层窗口的标识、标题和屏幕区域
type Window struct {
	ID     int
	Title  string
	X, Y   int
	Width  int
	Height int
}

// Degenerate 区域为空时无法截图
func (w Window) Degenerate() bool {
	return w.Width <= 0 || w.Height <= 0
}

// TieBreak 多个窗口标题都匹配时的选择策略
type TieBreak string

const (
	TieBreakFirst TieBreak = "first"
	// TieBreakLast 按枚举顺序保留最后一个匹配
	TieBreakLast TieBreak = "last"
)

// ParseTieBreak 解析配置中的策略名
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(strings.ToLower(strings.TrimSpace(s))) {
	case TieBreakFirst:
		return TieBreakFirst, nil
	case TieBreakLast, "":
		return TieBreakLast, nil
	default:
		return "", fmt.Errorf("unknown tie-break policy %q", s)
	}
}

// Select 从枚举结果中选出标题包含 substr 的窗口
func (t TieBreak) Select(windows []Window, substr string) (Window, bool) {
	var (
		found Window
		ok    bool
	)
	for _, w := range windows {
		if !strings.Contains(w.Title, substr) {
			continue
		}
		if t == TieBreakFirst {
			return w, true
		}
		found, ok = w, true
	}
	return found, ok
}

// EncodeDataURI PNG 编码后转为 base64 data URI
func EncodeDataURI(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("PNG编码失败: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// NewShot 编码图像并生成截图结果
func NewShot(img image.Image, window string) (*Shot, error) {
	uri, err := EncodeDataURI(img)
	if err != nil {
		return nil, err
	}
	return &Shot{
		DataURI: uri,
		Image:   img,
		Window:  window,
		At:      time.Now(),
	}, nil
}
