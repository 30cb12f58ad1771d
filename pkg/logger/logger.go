package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Level representa o nível de log
type Level int

const (
	// DEBUG nível para mensagens detalhadas de depuração
	DEBUG Level = iota
	// INFO nível para informações gerais
	INFO
	// WARN nível para avisos
	WARN
	// ERROR nível para erros
	ERROR
	// FATAL nível para erros fatais (encerra o programa)
	FATAL
)

var (
	// Logger base compartilhado por todos os pacotes
	base = newBase(os.Stdout)

	// Nível mínimo de log
	logLevel = INFO

	// Saída padrão e arquivo atual
	logOutput  io.Writer = os.Stdout
	fileOutput io.WriteCloser

	// Formato de timestamp
	timeFormat = "2006-01-02 15:04:05.000"

	// Mutex para operações de configuração
	mu sync.Mutex
)

func newBase(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timeFormat,
	})
	return l
}

// Init inicializa o logger
func Init() {
	mu.Lock()
	defer mu.Unlock()
	base.SetOutput(logOutput)
	base.SetLevel(toLogrus(logLevel))
}

// ParseLevel converte o nome do nível ("debug", "info", ...) em Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("nível de log desconhecido: %q", name)
	}
}

func toLogrus(level Level) logrus.Level {
	switch level {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case FATAL:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// SetLevel define o nível mínimo de log
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	logLevel = level
	base.SetLevel(toLogrus(level))
}

// SetOutput define a saída para todos os logs
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logOutput = w
	base.SetOutput(w)
}

// EnableFileLogging habilita o log para arquivo (terminal + arquivo)
func EnableFileLogging(logDir, prefix string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("erro ao criar diretório de log: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	if prefix != "" {
		prefix = prefix + "_"
	}

	logFilePath := filepath.Join(logDir, fmt.Sprintf("%s%s.log", prefix, timestamp))
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("erro ao criar arquivo de log: %w", err)
	}

	if fileOutput != nil {
		fileOutput.Close()
	}
	fileOutput = logFile

	base.SetOutput(io.MultiWriter(logOutput, logFile))
	base.Info("Logging iniciado")
	return nil
}

// Sync fecha o arquivo de log, se houver
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if fileOutput != nil {
		fileOutput.Close()
		fileOutput = nil
		base.SetOutput(logOutput)
	}
}

// GetLogger retorna o logger logrus subjacente
func GetLogger() *logrus.Logger {
	return base
}

// WithFields retorna uma entrada com campos estruturados
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return base.WithFields(logrus.Fields(fields))
}

// WithComponent retorna uma entrada marcada com o nome do componente
func WithComponent(name string) *logrus.Entry {
	return base.WithField("component", name)
}

// Debug escreve mensagem de log com nível DEBUG
func Debug(msg string) {
	base.Debug(msg)
}

// Debugf escreve mensagem de log formatada com nível DEBUG
func Debugf(format string, args ...interface{}) {
	base.Debugf(format, args...)
}

// Info escreve mensagem de log com nível INFO
func Info(msg string) {
	base.Info(msg)
}

// Infof escreve mensagem de log formatada com nível INFO
func Infof(format string, args ...interface{}) {
	base.Infof(format, args...)
}

// Warn escreve mensagem de log com nível WARN
func Warn(msg string) {
	base.Warn(msg)
}

// Warnf escreve mensagem de log formatada com nível WARN
func Warnf(format string, args ...interface{}) {
	base.Warnf(format, args...)
}

// Error escreve mensagem de log com nível ERROR
func Error(msg string, err error) {
	if err != nil {
		base.WithError(err).Error(msg)
	} else {
		base.Error(msg)
	}
}

// Errorf escreve mensagem de log formatada com nível ERROR
func Errorf(format string, args ...interface{}) {
	base.Errorf(format, args...)
}

// Fatal escreve mensagem de log com nível FATAL e encerra o programa
func Fatal(msg string, err error) {
	if err != nil {
		base.WithError(err).Fatal(msg)
	} else {
		base.Fatal(msg)
	}
}

// Fatalf escreve mensagem de log formatada com nível FATAL e encerra o programa
func Fatalf(format string, args ...interface{}) {
	base.Fatalf(format, args...)
}
