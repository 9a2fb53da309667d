package observer

import "github.com/shirou/gopsutil/v3/process"

// LivenessChecker reports whether a monitored process is still running.
type LivenessChecker interface {
	Alive(pid int) bool
}

// LivenessFunc adapts a function to LivenessChecker.
type LivenessFunc func(pid int) bool

// Alive calls f.
func (f LivenessFunc) Alive(pid int) bool { return f(pid) }

// ProcessLiveness checks the operating system process table.
var ProcessLiveness LivenessChecker = LivenessFunc(func(pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExists(int32(pid))
	return err == nil && exists
})

// AlwaysAlive treats every process as running. Useful for synthetic pids.
var AlwaysAlive LivenessChecker = LivenessFunc(func(int) bool { return true })
