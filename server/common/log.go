package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kataras/golog"
)

var logWriter *os.File
var disposed bool

// logPath and logDays are set by InitLogging; defaulted here so the package
// is usable (to stdout) even if InitLogging is never called, e.g. in tests.
var logPath = "./logs"
var logDays uint = 7

// InitLogging points golog at a daily-rotating file under dir, mirroring the
// teacher's stdout+file multiwriter setup, and starts the midnight rotation
// goroutine. level is a golog level name ("info", "debug", ...).
func InitLogging(dir, level string, days uint) {
	logPath = dir
	logDays = days
	golog.SetTimeFormat("2006/01/02 15:04:05")
	golog.SetLevel(level)
	rotateLogFile()
	go rotateDaily()
}

func rotateLogFile() {
	if logWriter != nil {
		logWriter.Close()
	}
	if disposed {
		golog.SetOutput(os.Stdout)
		return
	}
	os.MkdirAll(logPath, 0755)
	now := time.Now()
	file := fmt.Sprintf("%s/%s.log", logPath, now.Format("2006-01-02"))
	w, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		golog.Warn(getLog("LOG_INIT", "fail", err.Error(), nil))
		return
	}
	logWriter = w
	golog.SetOutput(io.MultiWriter(os.Stdout, logWriter))

	stale := now.AddDate(0, 0, -int(logDays))
	os.Remove(fmt.Sprintf("%s/%s.log", logPath, stale.Format("2006-01-02")))
}

func rotateDaily() {
	now := time.Now()
	waitSecs := 86400 - (now.Hour()*3600 + now.Minute()*60 + now.Second())
	if waitSecs > 0 {
		<-time.After(time.Duration(waitSecs) * time.Second)
	}
	rotateLogFile()
	for range time.NewTicker(24 * time.Hour).C {
		rotateLogFile()
	}
}

// getLog renders a structured log line as JSON. args carries whatever
// context (remote IP via withCtx, device ID) the caller chooses to attach;
// it is optional since not every log line has a request behind it.
func getLog(event, status, msg string, args map[string]any) string {
	if args == nil {
		args = map[string]any{}
	}
	args["event"] = event
	if msg != "" {
		args["msg"] = msg
	}
	if status != "" {
		args["status"] = status
	}
	out, _ := json.Marshal(args)
	return string(out)
}

func Info(ctx any, event, status, msg string, args map[string]any) {
	golog.Info(getLog(event, status, msg, withCtx(ctx, args)))
}

func Warn(ctx any, event, status, msg string, args map[string]any) {
	golog.Warn(getLog(event, status, msg, withCtx(ctx, args)))
}

func Error(ctx any, event, status, msg string, args map[string]any) {
	golog.Error(getLog(event, status, msg, withCtx(ctx, args)))
}

func Fatal(ctx any, event, status, msg string, args map[string]any) {
	golog.Fatal(getLog(event, status, msg, withCtx(ctx, args)))
}

func Debug(ctx any, event, status, msg string, args map[string]any) {
	golog.Debug(getLog(event, status, msg, withCtx(ctx, args)))
}

// withCtx attaches a remote-IP string, if the caller passed one, to args.
// Callers pass a plain string (from common.GetRealIP or similar) rather
// than a framework-specific context type, keeping this package free of an
// HTTP/websocket dependency.
func withCtx(ctx any, args map[string]any) map[string]any {
	if args == nil {
		args = map[string]any{}
	}
	if ip, ok := ctx.(string); ok && ip != "" {
		args["from"] = ip
	}
	return args
}

// CloseLog stops file logging and returns output to stdout.
func CloseLog() {
	disposed = true
	golog.SetOutput(os.Stdout)
	if logWriter != nil {
		logWriter.Close()
		logWriter = nil
	}
}
