package errors

import (
	"fmt"
	"os"
	"sync"
)

var (
	defaultHandler    *ErrorHandler
	defaultHandlerErr error
	once              sync.Once
)

func GetDefaultHandler() (*ErrorHandler, error) {
	once.Do(func() {
		defaultHandler, defaultHandlerErr = NewErrorHandler()
	})
	return defaultHandler, defaultHandlerErr
}

func HandleError(err error) {
	if handler, handlerErr := GetDefaultHandler(); handlerErr == nil {
		handler.Handle(err)
		return
	}
	// no error log available, the message still has to reach the operator
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
}

// resetDefaultHandler resets the singleton for testing purposes
func resetDefaultHandler() {
	defaultHandler = nil
	defaultHandlerErr = nil
	once = sync.Once{}
}