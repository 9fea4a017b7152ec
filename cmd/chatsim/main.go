package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"sync"
	"syscall"

	"github.com/Zacy-Sokach/ChatSim/internal/api"
	"github.com/Zacy-Sokach/ChatSim/internal/archive"
	"github.com/Zacy-Sokach/ChatSim/internal/capture"
	"github.com/Zacy-Sokach/ChatSim/internal/chat"
	"github.com/Zacy-Sokach/ChatSim/internal/config"
	"github.com/Zacy-Sokach/ChatSim/internal/generator"
	"github.com/Zacy-Sokach/ChatSim/internal/loop"
	"github.com/Zacy-Sokach/ChatSim/internal/overlay"
	"github.com/Zacy-Sokach/ChatSim/internal/persona"
	"github.com/Zacy-Sokach/ChatSim/internal/relay"
	"github.com/Zacy-Sokach/ChatSim/internal/telemetry"
	"github.com/Zacy-Sokach/ChatSim/internal/tui"
	"github.com/Zacy-Sokach/ChatSim/internal/utils"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
)

var (
	Version = "dev"
)

func main() {
	// 处理命令行参数
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Printf("ChatSim %s\n", Version)
			os.Exit(0)
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--init-config":
			os.Exit(initConfig())
		case "--history":
			os.Exit(printArchive(os.Args[2:]))
		}
	}

	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("程序发生panic: %v\n", r)
			fmt.Println("堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog := openLogger(cfg)
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("chatsim exited with error")
		fmt.Printf("程序运行错误: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ChatSim - simulated Twitch chat for live coding streams")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  chatsim                  Start the chat window")
	fmt.Println("  chatsim --init-config    Write the default config file")
	fmt.Println("  chatsim --history [n]    Print the last n archived lines")
	fmt.Println("  chatsim -v, --version    Show version information")
	fmt.Println("  chatsim -h, --help       Show help information")
	fmt.Println()
	fmt.Println("Commands in the chat window:")
	fmt.Println("  /pause /resume           Pause or resume generation")
	fmt.Println("  /clear                   Clear the chat and its history")
	fmt.Println("  /export                  Export the chat to Markdown and HTML")
	fmt.Println()
	fmt.Printf("Config file: %s\n", utils.GetConfigPathForDisplay())
}

func initConfig() int {
	path, err := config.ConfigPath()
	if err != nil {
		fmt.Printf("获取配置路径失败: %v\n", err)
		return 1
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("配置文件已存在: %s\n", path)
		return 0
	}
	if err := config.SaveConfig(config.Default()); err != nil {
		fmt.Printf("保存配置失败: %v\n", err)
		return 1
	}
	fmt.Println(lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("配置文件已创建: " + path))
	return 0
}

func printArchive(args []string) int {
	n := chat.DefaultHistorySize
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			fmt.Printf("无效的行数: %s\n", args[0])
			return 1
		}
		n = v
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		return 1
	}
	if cfg.Archive.Path == "" {
		fmt.Println("未配置 archive.path，没有存档可读")
		return 1
	}

	store, err := archive.Open(cfg.Archive.Path, zerolog.Nop())
	if err != nil {
		fmt.Printf("打开存档失败: %v\n", err)
		return 1
	}
	defer store.Close()

	lines, err := store.Recent(context.Background(), n)
	if err != nil {
		fmt.Printf("读取存档失败: %v\n", err)
		return 1
	}
	for _, line := range lines {
		fmt.Printf("[%s] %s\n", line.At.Format("2006-01-02 15:04:05"), line)
	}
	return 0
}

// openLogger 日志写入文件；终端由界面占用
func openLogger(cfg *config.Config) (zerolog.Logger, func()) {
	path, err := cfg.LogFile()
	if err == nil {
		var f *os.File
		if f, err = telemetry.OpenLogFile(path); err == nil {
			return telemetry.NewLogger(f, cfg.Log.Level), func() { f.Close() }
		}
	}

	console := telemetry.ConsoleLogger()
	console.Warn().Err(err).Msg("无法打开日志文件，日志将被丢弃")
	return zerolog.Nop(), func() {}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info().
		Str("version", Version).
		Msg("starting chatsim")

	room := chat.NewRoom(chat.NewHistory(cfg.Loop.HistorySize))
	room.Subscribe(chat.SinkFunc(func(line chat.Line) {
		telemetry.LinesPostedTotal.WithLabelValues(string(line.Source)).Inc()
		telemetry.HistoryLength.Set(float64(room.History().Len()))
	}))

	if cfg.Archive.Path != "" {
		store, err := archive.Open(cfg.Archive.Path, logger)
		if err != nil {
			return fmt.Errorf("打开存档失败: %w", err)
		}
		defer store.Close()
		room.Subscribe(store)
		logger.Info().Str("path", cfg.Archive.Path).Str("session", store.Session().String()).Msg("archiving chat")
	}

	picker := persona.NewPicker(persona.Pools{
		Usernames:     cfg.Chat.Usernames,
		Colors:        cfg.Chat.Colors,
		Personalities: cfg.Chat.Personalities,
	}, 0)

	client := api.NewClient(api.Options{
		URL:     cfg.API.URL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.API.Timeout,
	})
	logger.Info().
		Str("api_url", client.URL()).
		Str("model", cfg.API.Model).
		Msg("using chat completion endpoint")

	var capturer capture.Capturer
	if cfg.Capture.Enabled {
		if !capture.Supported {
			logger.Warn().Msg("screen capture requested but this build has no capture backend (build with -tags capture)")
			cfg.Capture.Enabled = false
		} else {
			tieBreak, err := capture.ParseTieBreak(cfg.Capture.TieBreak)
			if err != nil {
				return err
			}
			capturer = capture.NewScreenCapturer(cfg.Capture.WindowTitle, tieBreak)
		}
	}

	gen := generator.New(client, picker, generator.Options{
		Model:          cfg.API.Model,
		Temperature:    cfg.API.Temperature,
		Conversational: cfg.Capture.Enabled,
	}, logger)

	lp := loop.New(gen, room, picker, capturer, loop.Options{
		Interval:     cfg.Loop.Interval,
		RefreshEvery: cfg.Capture.RefreshEvery,
	}, logger)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	if cfg.Overlay.Addr != "" {
		hub := overlay.NewHub(logger)
		room.Subscribe(hub)
		srv := overlay.NewServer(cfg.Overlay.Addr, hub, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("overlay server failed")
			}
		}()
	}

	if cfg.Twitch.Channel != "" {
		r := relay.New(room, relay.Options{
			Channel:    cfg.Twitch.Channel,
			RatePerSec: cfg.Twitch.RatePerSec,
			Burst:      cfg.Twitch.Burst,
		}, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("twitch relay failed")
			}
		}()
	}

	if !isTerminal() {
		return runHeadless(ctx, room, lp)
	}

	tui.Version = Version
	// 界面必须先订阅聊天室，再启动循环
	model := tui.InitialModel(room, lp, tui.Options{
		ModeratorColor: cfg.Chat.ModeratorColor,
		ExportDir:      cfg.Export.Dir,
		Capture:        cfg.Capture.Enabled,
		Logger:         logger,
	})

	if err := lp.Start(ctx); err != nil {
		return err
	}
	defer lp.Stop()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// runHeadless 非交互式环境下把聊天打印到标准输出，直到收到信号
func runHeadless(ctx context.Context, room *chat.Room, lp *loop.Loop) error {
	fmt.Println("ChatSim 运行在非交互式模式，Ctrl+C 退出")

	var mu sync.Mutex
	room.Subscribe(chat.SinkFunc(func(line chat.Line) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Println(line.String())
	}))

	if err := lp.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	lp.Stop()
	return nil
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
