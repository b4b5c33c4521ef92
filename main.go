package main

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-overlay/cmd"
)

// GLFW must run on the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	cmd.Execute()
}
