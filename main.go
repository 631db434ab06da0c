// Command gvm16 is a runnable demonstration of the assembler/interpreter
// API exposed by this module: it loads a source file, ticks the
// interpreter on a timer, feeds keyboard input, and repaints a
// terminal screen. The exact cadence of the tick timer and the choice
// of terminal UI over a windowed one are left to the host; this is a
// terminal-driven stand-in that exercises every surface a real host
// would.
package main

import "github.com/KTStephano/gvm16/cmd"

func main() {
	cmd.Execute()
}
