package logger

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Logger is a stdlib-backed printf logger with a component prefix. It satisfies the
// Printf/Fatalf logger contract of libraries such as goose without ever exiting the process.
type Logger struct {
	out *log.Logger
}

// New returns a stdout logger prefixed with the component name.
func New(component string) *Logger {
	return NewWithWriter(os.Stdout, component)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, component string) *Logger {
	prefix := fmt.Sprintf("[%s] ", component)
	return &Logger{out: log.New(w, prefix, log.LstdFlags)}
}

// Printf writes a formatted line.
func (l *Logger) Printf(format string, v ...interface{}) {
	l.out.Printf(format, v...)
}

// Fatalf writes a formatted line marked as fatal. The caller keeps control of the process.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.out.Printf("FATAL "+format, v...)
}
