package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/clonner/clonner/internal/account"
	"github.com/clonner/clonner/internal/cache"
	"github.com/clonner/clonner/internal/config"
	"github.com/clonner/clonner/internal/logging"
	"github.com/clonner/clonner/internal/pool"
	"github.com/clonner/clonner/internal/remote"
	"github.com/clonner/clonner/internal/server"
	"github.com/clonner/clonner/internal/server/routes"
	"github.com/clonner/clonner/internal/session"
	"github.com/clonner/clonner/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configPath  string
	checkOnly   bool
	showVersion bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := logging.InitLogger(cfg)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 1
	}

	if opts.checkOnly {
		fields := logging.BaseFields("check_config", opts.configPath)
		fields["remote"] = cfg.RemoteBaseURL
		fields["result"] = "ok"
		logger.WithFields(fields).Info("配置校验通过")
		return 0
	}

	// 启动遵循“配置 → 会话存储 → 媒体缓存 → 远端客户端 → 池 → Fiber server”
	// 顺序，保证所有请求共享同一份池与缓存实例。
	sessions, err := session.NewStore(cfg.SessionsPath)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化会话目录失败: %v\n", err)
		return 1
	}

	manager, err := cache.NewManager(cache.Options{
		Dir:          cfg.CachePath,
		DefaultAsset: cfg.DefaultAsset,
		HTTPClient:   remote.NewHTTPClient(cfg.AssetTimeout.DurationValue()),
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 1
	}

	remoteClient, err := remote.NewClient(remote.Options{
		BaseURL:    cfg.RemoteBaseURL,
		HTTPClient: remote.NewHTTPClient(cfg.RemoteTimeout.DurationValue()),
		DelayMin:   cfg.DelayMin.DurationValue(),
		DelayMax:   cfg.DelayMax.DurationValue(),
	})
	if err != nil {
		fmt.Fprintf(stdErr, "初始化远端客户端失败: %v\n", err)
		return 1
	}

	clients := pool.New(remoteClient, sessions, logger)
	service := account.NewService(clients, manager, logger)

	fields := logging.BaseFields("startup", opts.configPath)
	fields["listen_port"] = cfg.ListenPort
	fields["cache_path"] = cfg.CachePath
	fields["sessions_path"] = cfg.SessionsPath
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, service, logger); err != nil {
		fmt.Fprintf(stdErr, "HTTP 服务启动失败: %v\n", err)
		return 1
	}
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("clonner", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		configFlag string
		checkOnly  bool
		showVer    bool
	)

	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 CLONNER_CONFIG 覆盖）")
	fs.BoolVar(&checkOnly, "check-config", false, "仅校验配置后退出")
	fs.BoolVar(&showVer, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CLONNER_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	if path == "" {
		path = "config.toml"
	}

	return cliOptions{
		configPath:  path,
		checkOnly:   checkOnly,
		showVersion: showVer,
	}, nil
}

func startHTTPServer(cfg *config.Config, service *account.Service, logger *logrus.Logger) error {
	app, err := server.NewApp(server.AppOptions{
		Logger:     logger,
		CacheDir:   cfg.CachePath,
		ListenPort: cfg.ListenPort,
	})
	if err != nil {
		return err
	}
	routes.RegisterAccountRoutes(app, service, logger)

	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   cfg.ListenPort,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", cfg.ListenPort))
}
