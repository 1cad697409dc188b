package udf

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

// Verbosity levels for the default go-logr integration, grounded on
// iso-kit's pkg/logging package (LEVEL_INFO/LEVEL_DEBUG/LEVEL_TRACE),
// renamed to this package's exported naming convention.
const (
	LevelInfo  = 0
	LevelDebug = 1
	LevelTrace = 2
)

var (
	infoColor  = color.New(color.FgGreen).SprintFunc()
	debugColor = color.New(color.FgCyan).SprintFunc()
	traceColor = color.New(color.FgYellow).SprintFunc()
	errorColor = color.New(color.FgRed).SprintFunc()
)

// simpleLogSink implements logr.LogSink with colored, human-readable
// output. Grounded on iso-kit/pkg/logging/simple.go's SimpleLogSink,
// adapted to this package's verbosity constants.
type simpleLogSink struct {
	writer       io.Writer
	minVerbosity int
	name         string
	keyValues    []interface{}
	mutex        *sync.Mutex
	useColor     bool
}

func (s *simpleLogSink) Init(info logr.RuntimeInfo) {}

func (s *simpleLogSink) Enabled(level int) bool { return level <= s.minVerbosity }

func (s *simpleLogSink) Info(level int, msg string, keysAndValues ...interface{}) {
	if !s.Enabled(level) {
		return
	}
	s.log(false, level, msg, keysAndValues...)
}

func (s *simpleLogSink) Error(err error, msg string, keysAndValues ...interface{}) {
	allKV := append(append([]interface{}{}, keysAndValues...), "error", err)
	s.log(true, 0, msg, allKV...)
}

func (s *simpleLogSink) WithValues(keysAndValues ...interface{}) logr.LogSink {
	return &simpleLogSink{
		writer: s.writer, minVerbosity: s.minVerbosity, name: s.name,
		keyValues: append(append([]interface{}{}, s.keyValues...), keysAndValues...),
		mutex:     s.mutex, useColor: s.useColor,
	}
}

func (s *simpleLogSink) WithName(name string) logr.LogSink {
	newName := name
	if s.name != "" {
		newName = fmt.Sprintf("%s.%s", s.name, name)
	}
	return &simpleLogSink{
		writer: s.writer, minVerbosity: s.minVerbosity, name: newName,
		keyValues: append([]interface{}{}, s.keyValues...), mutex: s.mutex, useColor: s.useColor,
	}
}

func (s *simpleLogSink) V(level int) logr.LogSink { return s }

func (s *simpleLogSink) log(isError bool, level int, msg string, keysAndValues ...interface{}) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var label string
	switch {
	case isError:
		label = errorColor("[ERROR]") + " "
	case level == LevelDebug:
		label = debugColor("[DEBUG]") + " "
	case level == LevelTrace:
		label = traceColor("[TRACE]") + " "
	default:
		label = infoColor("[INFO]") + " "
	}

	fullMsg := msg
	if s.name != "" {
		fullMsg = fmt.Sprintf("[%s] %s", s.name, msg)
	}
	fmt.Fprintln(s.writer, label+fullMsg)

	for i := 0; i < len(keysAndValues)-1; i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprintf("key%d", i/2)
		}
		fmt.Fprintf(s.writer, "  %s: %v\n", key, keysAndValues[i+1])
	}
}

// NewSimpleLogger builds a logr.Logger that writes colored text to
// writer (os.Stdout if nil) at the given minimum verbosity. Intended
// for CLI use (cmd/udfview); library callers default to
// logr.Discard() via WithLogger's zero value.
func NewSimpleLogger(writer io.Writer, minVerbosity int, useColor bool) logr.Logger {
	if writer == nil {
		writer = os.Stdout
	}
	if !useColor {
		color.NoColor = true
	}
	return logr.New(&simpleLogSink{writer: writer, minVerbosity: minVerbosity, mutex: &sync.Mutex{}, useColor: useColor})
}
