package logger

// Standard field keys for structured logging. Use these consistently across
// log statements so aggregated logs stay queryable.
const (
	KeyOp     = "op"     // syscall name: open, mkdir, unlink, ...
	KeyPath   = "path"   // path argument of the operation
	KeyFD     = "fd"     // file descriptor handle
	KeyMode   = "mode"   // packed mode bits, octal
	KeyDevice = "device" // backing device identity
	KeyStatus = "status" // ok or the error code name
	KeyError  = "error"  // error detail

	KeyAddr     = "addr"     // network listen address
	KeyMethod   = "method"   // HTTP method
	KeyRoute    = "route"    // HTTP route
	KeyDuration = "duration" // elapsed time
)
