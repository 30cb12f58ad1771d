package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"robot_go/internal/config"
	"robot_go/internal/server"
	"robot_go/pkg/logger"
)

var (
	configPath string
	robotHost  string
	robotPort  int
	httpPort   int
	logLevel   string
	logDir     string
)

var rootCmd = &cobra.Command{
	Use:   "robot-server",
	Short: "Servidor de controle do braço robótico",
	Long: `Robot Arm Control - mantém a sessão TCP com o controlador do braço,
reconecta com backoff exponencial e retransmite posição, status e estado da
conexão para o painel via WebSocket, SSE, Redis e PLC S7.

Configuração: config.json (ou --config), .env e variáveis de ambiente.
Flags explícitas têm precedência sobre o arquivo.`,
	Version:      server.Version,
	SilenceUsage: true,
	RunE:         runServer,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Arquivo de configuração JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Nível de log (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Diretório dos arquivos de log")

	rootCmd.Flags().StringVar(&robotHost, "robot-host", "", "Endereço do controlador do braço")
	rootCmd.Flags().IntVar(&robotPort, "robot-port", 0, "Porta TCP do controlador do braço")
	rootCmd.Flags().IntVarP(&httpPort, "port", "p", 0, "Porta HTTP do painel")

	rootCmd.AddCommand(simulateCmd)
}

// setupLogging aplica nível e arquivo de log
func setupLogging(cfg config.LogConfig, prefix string) {
	logger.Init()

	name := cfg.Level
	if logLevel != "" {
		name = logLevel
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		logger.Warnf("%v; usando info", err)
	}
	logger.SetLevel(level)

	dir := cfg.Dir
	if logDir != "" {
		dir = logDir
	}
	if dir != "" {
		if err := logger.EnableFileLogging(dir, prefix); err != nil {
			logger.Warnf("Log em arquivo desabilitado: %v", err)
		}
	}
}

// applyFlags sobrescreve a configuração com as flags informadas
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("robot-host") {
		cfg.Robot.Host = robotHost
	}
	if flags.Changed("robot-port") {
		cfg.Robot.Port = robotPort
	}
	if flags.Changed("port") {
		cfg.Server.Port = httpPort
	}
	return cfg.Validate()
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	setupLogging(cfg.Log, "robot")
	defer logger.Sync()

	displayBanner()
	logger.Infof("Configuração carregada: braço em %s, HTTP na porta %d",
		cfg.Robot.Address(), cfg.Server.Port)

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Erro ao iniciar o servidor", err)
			return err
		}
	case sig := <-quit:
		logger.Infof("Sinal %v recebido, desligando servidor...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Erro durante o shutdown do servidor", err)
	}

	logger.Info("Servidor encerrado com sucesso")
	return nil
}
