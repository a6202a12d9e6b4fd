package core

// Logger is any service that can log leveled messages.
// Extra args may carry errors, maps or a user.User for error reporters
// that support person tracking.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
