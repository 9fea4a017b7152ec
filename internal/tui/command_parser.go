package tui

import (
	"regexp"
	"strings"
)

// CommandType 命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypePause
	CommandTypeResume
	CommandTypeClear
	CommandTypeExport
	CommandTypeHelp
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
}

// CommandParser 主持人命令解析器
// 只识别固定的斜杠命令，其他输入（包括未知的 /xxx）都当作主持人发言
type CommandParser struct {
	patterns map[CommandType]*regexp.Regexp
	order    []CommandType
}

// NewCommandParser 创建新的命令解析器
func NewCommandParser() *CommandParser {
	parser := &CommandParser{}
	parser.initializePatterns()
	return parser
}

func (p *CommandParser) initializePatterns() {
	p.patterns = map[CommandType]*regexp.Regexp{
		CommandTypePause:  regexp.MustCompile(`(?i)^/pause$`),
		CommandTypeResume: regexp.MustCompile(`(?i)^/resume$`),
		CommandTypeClear:  regexp.MustCompile(`(?i)^/clear$`),
		CommandTypeExport: regexp.MustCompile(`(?i)^/export$`),
		CommandTypeHelp:   regexp.MustCompile(`(?i)^/(help|\?)$`),
	}
	p.order = []CommandType{
		CommandTypePause,
		CommandTypeResume,
		CommandTypeClear,
		CommandTypeExport,
		CommandTypeHelp,
	}
}

// Parse 解析输入；不是命令时返回 nil
func (p *CommandParser) Parse(input string) *Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	for _, t := range p.order {
		if p.patterns[t].MatchString(input) {
			return &Command{Type: t, Raw: input}
		}
	}

	return nil
}

// IsCommand 检查字符串是否为命令
func (p *CommandParser) IsCommand(input string) bool {
	return p.Parse(input) != nil
}

// FormatCommandType 格式化命令类型为字符串
func FormatCommandType(cmdType CommandType) string {
	switch cmdType {
	case CommandTypePause:
		return "PAUSE"
	case CommandTypeResume:
		return "RESUME"
	case CommandTypeClear:
		return "CLEAR"
	case CommandTypeExport:
		return "EXPORT"
	case CommandTypeHelp:
		return "HELP"
	default:
		return "UNKNOWN"
	}
}

const helpText = "/pause 暂停生成 • /resume 继续生成 • /clear 清空聊天和历史 • /export 导出聊天记录 • /help 显示帮助"
