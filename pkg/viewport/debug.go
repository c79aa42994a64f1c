package viewport

// debugLog is set by platform-specific code
var debugLog func(args ...interface{})

// SetDebugLog sets the debug logging function
func SetDebugLog(fn func(args ...interface{})) {
	debugLog = fn
}
