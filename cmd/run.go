package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nsf/termbox-go"
	"github.com/spf13/cobra"

	"github.com/KTStephano/gvm16/internal/config"
	"github.com/KTStephano/gvm16/internal/cpu"
	"github.com/KTStephano/gvm16/internal/keyboard"
	"github.com/KTStephano/gvm16/internal/loader"
	"github.com/KTStephano/gvm16/internal/memory"
	"github.com/KTStephano/gvm16/internal/screen"
)

var (
	configPath string
	tickHz     float64
	debugMode  bool
)

var runCmd = &cobra.Command{
	Use:   "run path/to/source.asm",
	Short: "assemble and run a source file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMachine,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a key:value memory configuration file")
	runCmd.Flags().Float64Var(&tickHz, "hz", 2, "interpreter ticks per second")
	runCmd.Flags().BoolVar(&debugMode, "debug", false, "single-step with n/r/b <line> commands instead of ticking on a timer")
}

// runMachine loads configuration, constructs Memory/CPU, assembles the
// given source, installs the keyboard FIFO, and then either
// single-steps or ticks on a time.Ticker, repainting a termbox screen
// each tick.
func runMachine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mem, err := memory.New(cfg.InstructionMemorySize, cfg.DataMemorySize,
		cfg.KeyboardBuffer, cfg.VideoMemoryStart, cfg.VideoMemoryEnd)
	if err != nil {
		return fmt.Errorf("constructing memory: %w", err)
	}

	src, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer src.Close()

	warnings, err := loader.Load(src, mem)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: line %d: %s\n", w.Line, w.Message)
	}
	if err != nil {
		return fmt.Errorf("assembling source: %w", err)
	}

	fifo := keyboard.New()
	mem.SetKeyboardPointer(fifo)

	c := cpu.New(mem)
	view := screen.NewView(mem, 80, (cfg.VideoMemoryEnd-cfg.VideoMemoryStart+1+79)/80)

	if debugMode {
		return runDebug(c, fifo)
	}
	return runTicked(c, fifo, view)
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	f, err := os.Open(configPath)
	if err != nil {
		return config.Config{}, err
	}
	defer f.Close()
	return config.Load(f)
}

// runTicked drives the interpreter on a timer and repaints a termbox
// screen each tick.
func runTicked(c *cpu.CPU, fifo *keyboard.FIFO, view *screen.View) error {
	if err := termbox.Init(); err != nil {
		return fmt.Errorf("initializing terminal: %w", err)
	}
	defer termbox.Close()

	events := make(chan termbox.Event)
	go func() {
		for {
			events <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / tickHz))
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			if ev.Type == termbox.EventKey {
				if ev.Key == termbox.KeyEsc {
					return nil
				}
				pushKeyEvent(fifo, ev)
			}
		case <-ticker.C:
			if err := c.Tick(fifo); err != nil {
				fmt.Fprintln(os.Stderr, err)
				fmt.Fprint(os.Stderr, c.Trace().String())
				return nil
			}
			repaint(view)
		}
	}
}

func pushKeyEvent(fifo *keyboard.FIFO, ev termbox.Event) {
	switch {
	case ev.Key == termbox.KeyEnter:
		fifo.Push(13)
	case ev.Ch != 0:
		fifo.Push(uint8(ev.Ch))
	}
}

func repaint(view *screen.View) {
	for row := 0; row < view.Height(); row++ {
		for col := 0; col < view.Width(); col++ {
			termbox.SetCell(col, row, view.Rune(row, col), termbox.ColorDefault, termbox.ColorDefault)
		}
	}
	termbox.Flush()
}

// runDebug implements a command-line single-step mode: n/next executes
// one instruction, r/run free-runs, b <line> toggles a breakpoint.
func runDebug(c *cpu.CPU, fifo *keyboard.FIFO) error {
	fmt.Println("commands: n (next), r (run), b <line> (toggle breakpoint), q (quit)")
	fmt.Print(c.Dump())

	reader := bufio.NewReader(os.Stdin)
	breakpoints := make(map[int]bool)
	running := false

	for {
		if !running {
			fmt.Print("-> ")
			line, _ := reader.ReadString('\n')
			line = strings.TrimSpace(line)
			switch {
			case line == "q":
				return nil
			case line == "r" || line == "run":
				running = true
			case strings.HasPrefix(line, "b"):
				toggleBreakpoint(breakpoints, line)
				continue
			default: // "n", "next", or anything else steps once
			}
		} else if pc, ok := c.PC(); ok && breakpoints[pc] {
			fmt.Println("breakpoint")
			running = false
			fmt.Print(c.Dump())
			continue
		}

		if err := c.Tick(fifo); err != nil {
			fmt.Println(err)
			return nil
		}
		if !running {
			fmt.Print(c.Dump())
		}
	}
}

func toggleBreakpoint(breakpoints map[int]bool, cmd string) {
	fields := strings.Fields(cmd)
	if len(fields) != 2 {
		fmt.Println("usage: b <line>")
		return
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Println("invalid line number:", err)
		return
	}
	breakpoints[n] = !breakpoints[n]
}
