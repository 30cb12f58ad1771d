package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robot_go/internal/config"
	"robot_go/internal/simulator"
	"robot_go/pkg/logger"
)

var (
	simListen    string
	simMoveDelay time.Duration
	simEnvelope  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Executa o simulador do controlador do braço",
	Long: `Sobe um servidor TCP que fala o protocolo de linhas do braço (GET_POS,
GET_STATUS, MOVE_ABS, MOVE_REL, HOME, STOP, RESET).

Útil para desenvolver o painel sem hardware:
  robot-server simulate --listen 127.0.0.1:5000 --move-delay 2s
  robot-server --robot-host 127.0.0.1 --robot-port 5000`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVarP(&simListen, "listen", "l", "127.0.0.1:5000", "Endereço de escuta")
	simulateCmd.Flags().DurationVar(&simMoveDelay, "move-delay", time.Second, "Duração simulada de cada movimento")
	simulateCmd.Flags().BoolVar(&simEnvelope, "envelope", true, "Rejeitar movimentos fora do envelope de trabalho configurado")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.Log, "simulator")
	defer logger.Sync()

	opts := []simulator.Option{simulator.WithMoveDelay(simMoveDelay)}
	if simEnvelope {
		opts = append(opts, simulator.WithEnvelope(cfg.Envelope))
	}

	sim := simulator.New(opts...)
	if err := sim.Start(simListen); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Encerrando simulador")
	return sim.Close()
}
