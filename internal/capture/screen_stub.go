//go:build !capture

package capture

import "context"

// Supported 当前构建不包含截图后端
const Supported = false

type unsupportedCapturer struct{}

// NewScreenCapturer 在未启用 capture 构建标签时返回总是失败的截图器
func NewScreenCapturer(string, TieBreak) Capturer {
	return unsupportedCapturer{}
}

func (unsupportedCapturer) Capture(context.Context) (*Shot, error) {
	return nil, ErrUnsupported
}
