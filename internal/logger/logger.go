package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// Logger writes colored lines to the terminal and JSON lines to a daily file.
// A nil *Logger discards everything.
type Logger struct {
	mu       sync.Mutex
	out      io.Writer
	logFile  *os.File
	minLevel LogLevel
}

// NewLogger opens logs/festbuzz-<date>.log in dir (created when missing).
func NewLogger(dir string) (*Logger, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("festbuzz-%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{out: os.Stdout, logFile: f, minLevel: DEBUG}
	l.Info("LOGGER", fmt.Sprintf("Log file: %s", name))
	return l, nil
}

// NewWriterLogger logs plain terminal lines to w only. Used by tools and tests.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w, minLevel: DEBUG}
}

// SetLevel drops entries below level.
func (l *Logger) SetLevel(level LogLevel) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// ParseLevel maps a config string onto a LogLevel, defaulting to INFO.
func ParseLevel(s string) LogLevel {
	for level, name := range levelNames {
		if strings.EqualFold(name, s) {
			return level
		}
	}
	return INFO
}

func (l *Logger) log(level LogLevel, category, message string) {
	if l == nil || level < l.minLevel {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     levelNames[level],
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.out != nil {
		fmt.Fprint(l.out, formatTerminal(entry))
	}
	if l.logFile != nil {
		if b, err := json.Marshal(entry); err == nil {
			l.logFile.Write(append(b, '\n'))
		}
	}
}

func formatTerminal(entry LogEntry) string {
	var attr color.Attribute
	switch entry.Level {
	case "DEBUG":
		attr = color.FgCyan
	case "INFO":
		attr = color.FgGreen
	case "WARN":
		attr = color.FgYellow
	case "ERROR", "FATAL":
		attr = color.FgRed
	default:
		attr = color.FgWhite
	}

	ts := color.New(color.FgBlue).Sprint(entry.Timestamp[11:19])
	level := color.New(attr).Sprintf("%-5s", entry.Level)
	category := color.New(attr, color.Bold).Sprintf("[%-12s]", entry.Category)

	if entry.File != "" && entry.Line > 0 {
		where := color.New(color.FgMagenta).Sprintf(" (%s:%d)", entry.File, entry.Line)
		return fmt.Sprintf("%s %s %s %s%s\n", ts, level, category, entry.Message, where)
	}
	return fmt.Sprintf("%s %s %s %s\n", ts, level, category, entry.Message)
}

func (l *Logger) Debug(category, message string) { l.log(DEBUG, category, message) }
func (l *Logger) Info(category, message string) { l.log(INFO, category, message) }
func (l *Logger) Warn(category, message string) { l.log(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.log(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.log(FATAL, category, message)
	os.Exit(1)
}

func (l *Logger) LogRegistration(action, id, message string) {
	l.log(INFO, "REGISTRATION", fmt.Sprintf("[%s] %s - %s", action, id, message))
}

func (l *Logger) LogTeam(action, teamID, message string) {
	l.log(INFO, "TEAM", fmt.Sprintf("[%s] %s - %s", action, teamID, message))
}

func (l *Logger) LogAPI(method, path string, status int, duration time.Duration) {
	l.log(INFO, "API", fmt.Sprintf("%s %s - %d (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.log(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.log(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.log(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	if l == nil || l.logFile == nil {
		return
	}
	l.Info("LOGGER", "Closing log file")
	l.mu.Lock()
	l.logFile.Close()
	l.logFile = nil
	l.mu.Unlock()
}
