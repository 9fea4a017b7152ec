// Package export 把聊天记录导出为 Markdown 和 HTML 文件
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/russross/blackfriday/v2"
)

const fileTimeLayout = "20060102-150405"

// Markdown 每行渲染为一个列表项，说话人加粗
func Markdown(lines []chat.Line) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Chat transcript\n\n")

	if len(lines) == 0 {
		buf.WriteString("_empty_\n")
		return buf.Bytes()
	}

	for _, line := range lines {
		fmt.Fprintf(&buf, "- `%s` **%s:** %s\n",
			line.At.Format("15:04:05"),
			escape(line.Speaker),
			escape(line.Text),
		)
	}
	return buf.Bytes()
}

// HTML 通过 blackfriday 把 Markdown 转为 HTML 片段并包上页面
func HTML(lines []chat.Line) []byte {
	body := blackfriday.Run(Markdown(lines))

	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Chat transcript</title>\n</head>\n<body>\n")
	buf.Write(body)
	buf.WriteString("</body>\n</html>\n")
	return buf.Bytes()
}

// WriteFiles 在 dir 下写入 chat-<时间戳>.md 和 .html，返回两个文件路径
func WriteFiles(dir string, lines []chat.Line, now time.Time) (string, string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("创建导出目录失败: %w", err)
	}

	base := filepath.Join(dir, "chat-"+now.Format(fileTimeLayout))
	mdPath := base + ".md"
	htmlPath := base + ".html"

	if err := os.WriteFile(mdPath, Markdown(lines), 0644); err != nil {
		return "", "", fmt.Errorf("写入 Markdown 失败: %w", err)
	}
	if err := os.WriteFile(htmlPath, HTML(lines), 0644); err != nil {
		return "", "", fmt.Errorf("写入 HTML 失败: %w", err)
	}

	return mdPath, htmlPath, nil
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	">", "&gt;",
)

// escape 模型输出里的 Markdown 标记按原样显示
func escape(s string) string {
	return markdownEscaper.Replace(strings.ReplaceAll(s, "\n", " "))
}
