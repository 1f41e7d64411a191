package handler

const (
	// RootPath is the root path of a route group.
	RootPath = "/"

	// ErrNilDepsFatalLogMsg is used if a handler is initialized with a
	// nil dependency.
	ErrNilDepsFatalLogMsg = "handler dependency is nil"
)
