// Copyright 2018-present Network Optix, Inc. Licensed under MPL 2.0: www.mozilla.org/MPL/2.0/
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

// logr verbosity of each non error level
const (
	warningVerbosity = 0
	infoVerbosity    = 1
	debugVerbosity   = 2
)

// labelSink implements logr.LogSink, writing one line per record with a
// level label, colored when useColor is set.
type labelSink struct {
	writer       io.Writer
	minVerbosity int
	name         string
	keyValues    []any
	mutex        *sync.Mutex
	useColor     bool
}

func newLabelSink(writer io.Writer, minVerbosity int, useColor bool) *labelSink {
	if writer == nil {
		writer = os.Stderr
	}
	return &labelSink{
		writer:       writer,
		minVerbosity: minVerbosity,
		keyValues:    []any{},
		mutex:        &sync.Mutex{},
		useColor:     useColor,
	}
}

func (sink *labelSink) Init(logr.RuntimeInfo) {}

func (sink *labelSink) Enabled(level int) bool {
	return level <= sink.minVerbosity
}

func (sink *labelSink) Info(level int, msg string, keysAndValues ...any) {
	if !sink.Enabled(level) {
		return
	}
	sink.write(sink.label(level), msg, keysAndValues)
}

func (sink *labelSink) Error(err error, msg string, keysAndValues ...any) {
	if err != nil {
		keysAndValues = append(keysAndValues, "error", err)
	}
	sink.write(sink.paint(color.FgRed, "ERROR"), msg, keysAndValues)
}

func (sink *labelSink) WithValues(keysAndValues ...any) logr.LogSink {
	clone := *sink
	clone.keyValues = append(append([]any{}, sink.keyValues...), keysAndValues...)
	return &clone
}

func (sink *labelSink) WithName(name string) logr.LogSink {
	clone := *sink
	clone.keyValues = append([]any{}, sink.keyValues...)
	if sink.name != "" {
		clone.name = fmt.Sprintf("%s.%s", sink.name, name)
	} else {
		clone.name = name
	}
	return &clone
}

func (sink *labelSink) label(level int) string {
	switch level {
	case warningVerbosity:
		return sink.paint(color.FgYellow, "WARNING")
	case infoVerbosity:
		return sink.paint(color.FgGreen, "INFO")
	case debugVerbosity:
		return sink.paint(color.FgCyan, "DEBUG")
	}
	return fmt.Sprintf("LEVEL %d", level)
}

func (sink *labelSink) paint(attribute color.Attribute, label string) string {
	if !sink.useColor {
		return label
	}
	painted := color.New(attribute)
	// the writer is not necessarily stdout, which color checks by itself
	painted.EnableColor()
	return painted.Sprint(label)
}

func (sink *labelSink) write(label string, msg string, keysAndValues []any) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	line := fmt.Sprintf("%s: %s ", label, time.Now().Format("2006/01/02 15:04:05"))
	if sink.name != "" {
		line += sink.name + " "
	}
	fmt.Fprintln(sink.writer, line+msg)
	pairs := append(append([]any{}, sink.keyValues...), keysAndValues...)
	for index := 0; index+1 < len(pairs); index += 2 {
		key, ok := pairs[index].(string)
		if !ok {
			key = fmt.Sprintf("key%d", index/2)
		}
		fmt.Fprintf(sink.writer, "  %s: %v\n", key, pairs[index+1])
	}
}
