package cmd

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sunbk201/mediagate/internal/api"
	"github.com/sunbk201/mediagate/internal/config"
	"github.com/sunbk201/mediagate/internal/daemon"
	"github.com/sunbk201/mediagate/internal/gate"
	"github.com/sunbk201/mediagate/internal/log"
	"github.com/sunbk201/mediagate/internal/netfilter"
	"github.com/sunbk201/mediagate/internal/statistics"
)

var (
	AppVersion    = "Development"
	shutdownChain []func() error
)

var rootCmd = &cobra.Command{
	Use:   "mediagate",
	Short: "mediagate is an admission-control gate for media streaming servers",
	Long:  "mediagate evaluates allow/deny rules per vhost and operation (play, publish) against client addresses, exposes verdicts over an HTTP API, and can ban repeat offenders at the netfilter layer.",
	RunE:  runRoot,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Short flags
	rootCmd.Flags().StringP("config", "c", "", "Config file path")
	rootCmd.Flags().StringP("bind", "b", "", "Bind address for the API")
	rootCmd.Flags().IntP("port", "p", 0, "Port for the API")
	rootCmd.Flags().StringP("log-level", "l", "", "Log level")
	rootCmd.Flags().BoolP("version", "v", false, "Show version")
	rootCmd.Flags().BoolP("generate-config", "g", false, "Generate template config file")

	// Long flags
	rootCmd.Flags().String("api-secret", "", "Bearer token required by the API")
	rootCmd.Flags().String("cache-ttl", "", "Verdict cache TTL (0 disables the cache)")
	rootCmd.Flags().Int("cache-size", 0, "Verdict cache size")
	rootCmd.Flags().Bool("ban", false, "Ban addresses at the netfilter layer after repeated denials")
	rootCmd.Flags().Int("ban-threshold", 0, "Consecutive denials before a ban")
	rootCmd.Flags().String("ban-timeout", "", "How long a ban lasts")
	rootCmd.Flags().Int("ban-port", 0, "Streaming port the ban rule protects")

	// Bind all flags to viper using consistent key names
	_ = viper.BindPFlag("config", rootCmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("bind-address", rootCmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("log-level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("api-secret", rootCmd.Flags().Lookup("api-secret"))
	_ = viper.BindPFlag("cache-ttl", rootCmd.Flags().Lookup("cache-ttl"))
	_ = viper.BindPFlag("cache-size", rootCmd.Flags().Lookup("cache-size"))
	_ = viper.BindPFlag("ban.enabled", rootCmd.Flags().Lookup("ban"))
	_ = viper.BindPFlag("ban.threshold", rootCmd.Flags().Lookup("ban-threshold"))
	_ = viper.BindPFlag("ban.timeout", rootCmd.Flags().Lookup("ban-timeout"))
	_ = viper.BindPFlag("ban.port", rootCmd.Flags().Lookup("ban-port"))

	// Bind environment variables
	viper.SetEnvPrefix("MEDIAGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	_ = viper.BindEnv("bind-address", "MEDIAGATE_BIND_ADDRESS")
	_ = viper.BindEnv("port", "MEDIAGATE_PORT")
	_ = viper.BindEnv("log-level", "MEDIAGATE_LOG_LEVEL")
	_ = viper.BindEnv("api-secret", "MEDIAGATE_API_SECRET")
	_ = viper.BindEnv("ban.enabled", "MEDIAGATE_BAN_ENABLED")
	_ = viper.BindEnv("ban.threshold", "MEDIAGATE_BAN_THRESHOLD")
	_ = viper.BindEnv("ban.timeout", "MEDIAGATE_BAN_TIMEOUT")
	_ = viper.BindEnv("ban.port", "MEDIAGATE_BAN_PORT")
}

func initConfig() {
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.MergeInConfig(); err != nil {
			slog.Error("Failed to read config file", slog.Any("error", err))
			os.Exit(1)
		}
	}

	viper.SetDefault("bind-address", "127.0.0.1")
	viper.SetDefault("port", 8089)
	viper.SetDefault("log-level", "info")
	viper.SetDefault("cache-size", 1024)
	viper.SetDefault("cache-ttl", "30s")
	viper.SetDefault("ban.threshold", 10)
	viper.SetDefault("ban.timeout", "1h")
	viper.SetDefault("ban.port", 1935)
}

func runRoot(cmd *cobra.Command, args []string) error {
	// Handle -v / --version
	showVer, _ := cmd.Flags().GetBool("version")
	if showVer {
		fmt.Printf("mediagate version %s\n", AppVersion)
		return nil
	}

	// Handle -g / --generate-config
	genConfig, _ := cmd.Flags().GetBool("generate-config")
	if genConfig {
		_, err := config.GenerateTemplateConfig(true)
		if err != nil {
			return fmt.Errorf("failed to generate template config: %w", err)
		}
		fmt.Println("Template config file 'config.yaml' generated successfully.")
		return nil
	}

	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logBroadcaster := log.NewBroadcaster()
	log.SetLogConf(cfg.LogLevel, logBroadcaster)
	log.LogHeader(AppVersion, cfg)

	if err := daemon.DaemonSetup(cfg); err != nil {
		slog.Error("daemon.DaemonSetup", slog.Any("error", err))
		return err
	}

	var firewall *netfilter.Firewall
	if cfg.Ban.Enabled {
		firewall = netfilter.New(cfg.Ban.Port, cfg.Ban.Timeout)
		if err := firewall.Setup(); err != nil {
			slog.Error("firewall.Setup", slog.Any("error", err))
			return err
		}
		addShutdown("firewall.Cleanup", firewall.Cleanup)
	}

	dumpFile := cfg.StatsDumpFile
	if dumpFile == "" {
		dumpFile = log.GetStatsFilePath("decisions.log")
	}
	decisions := statistics.NewDecisionRecordList(dumpFile)
	decisions.Run()
	addShutdown("decisions.Dump", func() error {
		decisions.Dump()
		return nil
	})

	var banner gate.Banner
	if firewall != nil {
		banner = firewall
	}
	g := gate.New(cfg, decisions, banner)

	addr := net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port))
	apiSrv := api.New(addr, AppVersion, cfg, g, logBroadcaster)
	addShutdown("api.Close", apiSrv.Close)
	if err := apiSrv.Start(); err != nil {
		slog.Error("api.Start", slog.Any("error", err))
		shutdown()
		return err
	}

	cleanup := make(chan os.Signal, 1)
	signal.Notify(cleanup, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM)
	for {
		s := <-cleanup
		slog.Info("Received signal", slog.String("signal", s.String()))
		switch s {
		case syscall.SIGQUIT, syscall.SIGINT, syscall.SIGTERM:
			shutdown()
			return nil
		case syscall.SIGHUP:
			decisions.Dump()
		default:
			return nil
		}
	}
}

func addShutdown(name string, fn func() error) {
	shutdownChain = append(shutdownChain, func() error {
		if err := fn(); err != nil {
			slog.Error(name, slog.Any("error", err))
			return err
		}
		return nil
	})
}

func shutdown() {
	for i := len(shutdownChain) - 1; i >= 0; i-- {
		_ = shutdownChain[i]()
	}
	slog.Info("mediagate exit")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
