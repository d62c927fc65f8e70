package syslog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	param "github.com/TermGraph/dygparam"
	"github.com/TermGraph/syslog/internal/wrt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	SinkFile   = "file"
	SinkCWLog  = "cwlog"
	SinkStderr = "stderr"
)

// Options selects the log sink. Dir is only used by the file sink and
// defaults to $LOGDIR.
type Options struct {
	Sink     string
	Dir      string
	LogGroup string
	Debug    bool
	Services []string
}

// global logger - accessible from any routine
var (
	base = zap.NewNop()
	cw   *wrt.CWLog
	file *os.File
	//
	logWRm  sync.RWMutex
	logrMap = make(map[string]*zap.Logger)
)

// Start is called from main after the run id is created.
func Start(opt Options) error {

	param.DebugOn = opt.Debug
	if len(opt.Services) > 0 {
		param.LogServices = append(param.LogServices, opt.Services...)
	}

	var ws zapcore.WriteSyncer

	switch opt.Sink {

	case SinkCWLog:
		group := opt.LogGroup
		if len(group) == 0 {
			group = param.AppName + "-" + param.Environ
		}
		c, err := wrt.NewCWLog(context.Background(), group, streamName())
		if err != nil {
			return fmt.Errorf("syslog: start CloudWatch Logs writer: %w", err)
		}
		cw = c
		ws = zapcore.AddSync(c)

	case SinkFile, "":
		dir := opt.Dir
		if len(dir) == 0 {
			dir = os.Getenv("LOGDIR")
		}
		if len(dir) == 0 {
			return fmt.Errorf("syslog: LOGDIR not defined. Define LOGDIR as the full path to the log directory")
		}
		f, name, err := wrt.NewFile(dir, param.AppName)
		if err != nil {
			return fmt.Errorf("syslog: %w", err)
		}
		file = f
		param.LogFile = name
		ws = zapcore.Lock(f)

	case SinkStderr:
		ws = zapcore.Lock(os.Stderr)

	default:
		return fmt.Errorf("syslog: unknown sink %q", opt.Sink)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	SetLogger(zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, zap.DebugLevel), zap.AddCaller(), zap.AddCallerSkip(1)))

	return nil
}

func Stop() {
	logWRm.RLock()
	base.Sync()
	logWRm.RUnlock()
	SetLogger(zap.NewNop())
	if cw != nil {
		cw.Stop()
		cw = nil
	}
	if file != nil {
		file.Close()
		file = nil
	}
}

// SetLogger replaces the root logger. Loggers already created for a prefix are discarded.
func SetLogger(l *zap.Logger) {
	logWRm.Lock()
	base = l
	logrMap = make(map[string]*zap.Logger)
	logWRm.Unlock()
}

func streamName() string {
	id := param.RunId
	if len(id) > 6 {
		id = id[:6]
	}
	var s strings.Builder
	s.WriteByte('/')
	s.WriteString(param.Environ)
	s.WriteByte('/')
	s.WriteString(id)
	s.WriteString(".log")
	return s.String()
}

// Logger returns the logger for prefix, creating it on first use.
//
// Individual loggers are created for each prefix so most calls only take a
// read lock. The write lock is held only when a new prefix is added.
func Logger(prefix string) *zap.Logger {

	logWRm.RLock()
	l, ok := logrMap[prefix]
	logWRm.RUnlock()
	if ok {
		return l
	}

	logWRm.Lock()
	defer logWRm.Unlock()
	if l, ok = logrMap[prefix]; !ok {
		l = base.Named(strings.TrimSuffix(prefix, ":"))
		logrMap[prefix] = l
	}
	return l
}

func enabled(prefix string) bool {
	if param.DebugOn {
		return true
	}
	for _, s := range param.LogServices {
		if strings.HasPrefix(prefix, s) {
			return true
		}
	}
	return false
}

// Log writes s to the logger for prefix when debug is on or prefix is one of
// the must-log services.
func Log(prefix string, s string, panic ...bool) {

	if len(panic) > 0 && panic[0] {
		Logger(prefix).Panic(s)
		return
	}
	if !enabled(prefix) {
		return
	}
	Logger(prefix).Info(s)
}

// LogAlert is always written.
func LogAlert(prefix string, s string) {
	Logger(prefix).Warn(s)
}

// LogErr is always written.
func LogErr(prefix string, err error) {
	Logger(prefix).Error(err.Error())
}
