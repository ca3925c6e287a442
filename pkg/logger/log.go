// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package logger

import (
	"fmt"
	"io"
	"modecodec/pkg/common"
	"os"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"golang.org/x/term"
)

type LogLevel int

const (
	Error = LogLevel(iota)
	Warning
	Info
	Debug
)

func (level LogLevel) verbosity() int {
	// errors are always written, Error level disables every other record
	return int(level) - 1
}

var logFileLock = &sync.Mutex{}

type LoggingConfig struct {
	level    LogLevel
	writer   io.Writer
	useColor bool
}

type Logger struct {
	log logr.Logger
}

var logFileInstance *LoggingConfig

func GetLoggingConfig() *LoggingConfig {
	logFileLock.Lock()
	defer logFileLock.Unlock()
	if logFileInstance == nil {
		logFileInstance = &LoggingConfig{
			level:    Info,
			writer:   os.Stderr,
			useColor: term.IsTerminal(int(os.Stderr.Fd())),
		}
	}
	return logFileInstance
}

func SetLoggingConfig(level LogLevel) {
	loggingConfig := GetLoggingConfig()
	logFileLock.Lock()
	defer logFileLock.Unlock()
	loggingConfig.level = level
}

// SetLoggingOutput redirects every logger obtained afterwards.
func SetLoggingOutput(writer io.Writer, useColor bool) {
	loggingConfig := GetLoggingConfig()
	logFileLock.Lock()
	defer logFileLock.Unlock()
	loggingConfig.writer = writer
	loggingConfig.useColor = useColor
}

// GetLogger returns a logger named after its caller.
func GetLogger() *Logger {
	loggingConfig := GetLoggingConfig()
	name := common.GetTraceInfo()
	logFileLock.Lock()
	sink := newLabelSink(loggingConfig.writer, loggingConfig.level.verbosity(), loggingConfig.useColor)
	logFileLock.Unlock()
	return &Logger{log: logr.New(sink).WithName(name)}
}

func message(data []any) string {
	return strings.TrimSuffix(fmt.Sprintln(data...), "\n")
}

func (logger Logger) Error(data ...any) {
	logger.log.Error(nil, message(data))
}

func (logger Logger) Warn(data ...any) {
	logger.log.V(warningVerbosity).Info(message(data))
}

func (logger Logger) Warning(data ...any) {
	logger.Warn(data...)
}

func (logger Logger) Info(data ...any) {
	logger.log.V(infoVerbosity).Info(message(data))
}

func (logger Logger) Debug(data ...any) {
	logger.log.V(debugVerbosity).Info(message(data))
}

func (logger Logger) Errorf(format string, a ...any) {
	logger.Error(fmt.Sprintf(format, a...))
}

func (logger Logger) Warnf(format string, a ...any) {
	logger.Warn(fmt.Sprintf(format, a...))
}

func (logger Logger) Warningf(format string, a ...any) {
	logger.Warnf(format, a...)
}

func (logger Logger) Infof(format string, a ...any) {
	logger.Info(fmt.Sprintf(format, a...))
}

func (logger Logger) Debugf(format string, a ...any) {
	logger.Debug(fmt.Sprintf(format, a...))
}
