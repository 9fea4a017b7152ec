package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Zacy-Sokach/ChatSim/internal/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Loop    LoopConfig    `yaml:"loop"`
	Chat    ChatConfig    `yaml:"chat"`
	Capture CaptureConfig `yaml:"capture"`
	Overlay OverlayConfig `yaml:"overlay"`
	Twitch  TwitchConfig  `yaml:"twitch"`
	Archive ArchiveConfig `yaml:"archive"`
	Export  ExportConfig  `yaml:"export"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key,omitempty"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type LoopConfig struct {
	Interval    time.Duration `yaml:"interval"`
	HistorySize int           `yaml:"history_size"`
}

type ChatConfig struct {
	Usernames      []string `yaml:"usernames"`
	Colors         []string `yaml:"colors"`
	Personalities  []string `yaml:"personalities"`
	ModeratorColor string   `yaml:"moderator_color"`
}

type CaptureConfig struct {
	Enabled      bool   `yaml:"enabled"`
	WindowTitle  string `yaml:"window_title"`
	RefreshEvery int    `yaml:"refresh_every"`
	TieBreak     string `yaml:"tie_break"`
}

type OverlayConfig struct {
	Addr string `yaml:"addr"`
}

type TwitchConfig struct {
	Channel    string  `yaml:"channel"`
	RatePerSec float64 `yaml:"rate_per_sec"`
	Burst      int     `yaml:"burst"`
}

type ArchiveConfig struct {
	Path string `yaml:"path"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	DefaultUsernames = []string{"PixelPirate", "LagLord", "CopiumDealer", "GGWP_123"}
	DefaultColors    = []string{"#1E90FF", "#32CD32", "#FF4500", "#8A2BE2"}

	DefaultPersonalities = []string{
		"You're a chaotic Gen Z Twitch chat viewer roasting a programmer live. Be witty, sarcastic, and use emojis.",
		"You're a Twitch viewer who is new to programming and completely lost. Ask naive questions or make funny, incorrect assumptions about the code.",
		"You're an annoying 'well, actually...' type of viewer. Offer unsolicited advice, correct the streamer on minor details, or suggest 'better' ways to do things.",
		"You're the streamer's biggest fan. Be overly enthusiastic and positive. Hype up everything they do, no matter how small. Use lots of encouraging emojis.",
	}
)

// Default 返回与内置常量一致的默认配置
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:         "http://127.0.0.1:1234/v1/chat/completions",
			Model:       "google/gemma-3-12b-instruct",
			Temperature: 0.9,
			Timeout:     60 * time.Second,
		},
		Loop: LoopConfig{
			Interval:    4 * time.Second,
			HistorySize: 20,
		},
		Chat: ChatConfig{
			Usernames:      append([]string(nil), DefaultUsernames...),
			Colors:         append([]string(nil), DefaultColors...),
			Personalities:  append([]string(nil), DefaultPersonalities...),
			ModeratorColor: "#00FF00",
		},
		Capture: CaptureConfig{
			Enabled:      false,
			WindowTitle:  "Visual Studio Code",
			RefreshEvery: 3,
			TieBreak:     "last",
		},
		Twitch: TwitchConfig{
			RatePerSec: 0.5,
			Burst:      2,
		},
		Export: ExportConfig{
			Dir: ".",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig 读取 .env、配置文件和环境变量覆盖项
func LoadConfig() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	config, err := LoadConfigFrom(configPath)
	if err != nil {
		return nil, err
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigFrom 从指定路径读取配置，文件不存在时返回默认配置
func LoadConfigFrom(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config.fillDefaults()
	return config, nil
}

// fillDefaults 补全配置文件中留空的字段
func (c *Config) fillDefaults() {
	def := Default()

	if c.API.URL == "" {
		c.API.URL = def.API.URL
	}
	if c.API.Model == "" {
		c.API.Model = def.API.Model
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = def.API.Timeout
	}
	if c.Loop.Interval == 0 {
		c.Loop.Interval = def.Loop.Interval
	}
	if c.Loop.HistorySize == 0 {
		c.Loop.HistorySize = def.Loop.HistorySize
	}
	if len(c.Chat.Usernames) == 0 {
		c.Chat.Usernames = def.Chat.Usernames
	}
	if len(c.Chat.Colors) == 0 {
		c.Chat.Colors = def.Chat.Colors
	}
	if len(c.Chat.Personalities) == 0 {
		c.Chat.Personalities = def.Chat.Personalities
	}
	if c.Chat.ModeratorColor == "" {
		c.Chat.ModeratorColor = def.Chat.ModeratorColor
	}
	if c.Capture.WindowTitle == "" {
		c.Capture.WindowTitle = def.Capture.WindowTitle
	}
	if c.Capture.RefreshEvery == 0 {
		c.Capture.RefreshEvery = def.Capture.RefreshEvery
	}
	if c.Capture.TieBreak == "" {
		c.Capture.TieBreak = def.Capture.TieBreak
	}
	if c.Twitch.RatePerSec == 0 {
		c.Twitch.RatePerSec = def.Twitch.RatePerSec
	}
	if c.Twitch.Burst == 0 {
		c.Twitch.Burst = def.Twitch.Burst
	}
	if c.Export.Dir == "" {
		c.Export.Dir = def.Export.Dir
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// applyEnv 使用 CHATSIM_* 环境变量覆盖配置
func (c *Config) applyEnv() error {
	if v := os.Getenv("CHATSIM_API_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("CHATSIM_MODEL"); v != "" {
		c.API.Model = v
	}
	if v := os.Getenv("CHATSIM_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("CHATSIM_CAPTURE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CHATSIM_CAPTURE 无效: %w", err)
		}
		c.Capture.Enabled = enabled
	}
	if v := os.Getenv("CHATSIM_OVERLAY_ADDR"); v != "" {
		c.Overlay.Addr = v
	}
	if v := os.Getenv("CHATSIM_TWITCH_CHANNEL"); v != "" {
		c.Twitch.Channel = strings.ToLower(strings.TrimPrefix(v, "#"))
	}
	if v := os.Getenv("CHATSIM_ARCHIVE_PATH"); v != "" {
		c.Archive.Path = v
	}
	if v := os.Getenv("CHATSIM_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	var errs []error

	if c.Loop.Interval <= 0 {
		errs = append(errs, errors.New("loop.interval 必须大于 0"))
	}
	if c.Loop.HistorySize <= 0 {
		errs = append(errs, errors.New("loop.history_size 必须大于 0"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout 必须大于 0"))
	}
	if len(c.Chat.Usernames) == 0 || len(c.Chat.Colors) == 0 || len(c.Chat.Personalities) == 0 {
		errs = append(errs, errors.New("chat.usernames、chat.colors 和 chat.personalities 不能为空"))
	}
	if c.Capture.RefreshEvery <= 0 {
		errs = append(errs, errors.New("capture.refresh_every 必须大于 0"))
	}
	switch c.Capture.TieBreak {
	case "first", "last":
	default:
		errs = append(errs, fmt.Errorf("capture.tie_break 只能是 first 或 last: %q", c.Capture.TieBreak))
	}
	if c.Twitch.RatePerSec < 0 {
		errs = append(errs, errors.New("twitch.rate_per_sec 不能为负数"))
	}

	return errors.Join(errs...)
}

// LogFile 返回日志文件路径，未配置时放在配置目录下
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(dir, "chatsim.log"), nil
}

func SaveConfig(config *Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}

	return nil
}

// ConfigPath 返回配置文件路径
func ConfigPath() (string, error) {
	return getConfigPath()
}

func getConfigPath() (string, error) {
	configDir, err := utils.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
