package logging

import (
	"fmt"
	"log"
	"os"
)

var (
	InfoLogger  *log.Logger
	WarnLogger  *log.Logger
	ErrorLogger *log.Logger
)

// InitLogging initializes logging
func InitLogging() {
	InfoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarnLogger = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Warnf logs conditions an operator should look at but that did not fail the request
func Warnf(format string, v ...interface{}) {
	if WarnLogger != nil {
		WarnLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}
