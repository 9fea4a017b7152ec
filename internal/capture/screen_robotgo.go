//go:build capture

package capture

import (
	"context"
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Supported 当前构建包含截图后端
const Supported = true

// ScreenCapturer 通过 robotgo 枚举窗口并截取屏幕像素
type ScreenCapturer struct {
	title    string
	tieBreak TieBreak
}

// NewScreenCapturer 创建按标题子串匹配窗口的截图器
func NewScreenCapturer(title string, tieBreak TieBreak) Capturer {
	return &ScreenCapturer{title: title, tieBreak: tieBreak}
}

// Capture 截取匹配窗口当前的屏幕像素
func (c *ScreenCapturer) Capture(ctx context.Context) (*Shot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	windows, err := listWindows()
	if err != nil {
		return nil, fmt.Errorf("枚举窗口失败: %w", err)
	}

	win, ok := c.tieBreak.Select(windows, c.title)
	if !ok {
		return nil, ErrNoWindow
	}

	win.X, win.Y, win.Width, win.Height = robotgo.GetBounds(win.ID)
	if win.Degenerate() {
		return nil, ErrNoWindow
	}

	img, err := robotgo.CaptureImg(win.X, win.Y, win.Width, win.Height)
	if err != nil || img == nil {
		// 窗口在枚举和截图之间被关闭
		return nil, fmt.Errorf("%w: %v", ErrNoWindow, err)
	}

	return NewShot(img, win.Title)
}

// listWindows 按枚举顺序返回带标题的进程窗口
func listWindows() ([]Window, error) {
	procs, err := robotgo.Process()
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(procs))
	for _, p := range procs {
		title := robotgo.GetTitle(p.Pid)
		if title == "" {
			continue
		}
		windows = append(windows, Window{ID: p.Pid, Title: title})
	}
	return windows, nil
}
