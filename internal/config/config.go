// Package config parses the flat key:value configuration format used
// to size a machine's memory regions: instruction_memory_size,
// data_memory_size, keyboard_buffer, video_memory_start,
// video_memory_end.
package config

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the five memory/peripheral settings a machine needs at
// construction time.
type Config struct {
	InstructionMemorySize int
	DataMemorySize        int
	KeyboardBuffer        int
	VideoMemoryStart      int
	VideoMemoryEnd        int
}

// Default returns the configuration used when no config file is given:
// a 4096-instruction program space, 4096 data cells, keyboard mapped at
// address 0, and an 80x25 video window starting right after it.
func Default() Config {
	return Config{
		InstructionMemorySize: 4096,
		DataMemorySize:        4096,
		KeyboardBuffer:        0,
		VideoMemoryStart:      1,
		VideoMemoryEnd:        1 + 80*25 - 1,
	}
}

var ErrUnknownKey = errors.New("unknown configuration key")

// Load parses key:value lines from r. Unrecognised keys are a fatal
// error. instruction_memory_size/data_memory_size must be strictly
// positive; the remaining keys are addresses, for which 0 is legal
// (the default keyboard address is 0). Size/range validation against
// the 1024-multiple rule is left to memory.New, which is the single
// source of truth for that invariant.
func Load(r io.Reader) (Config, error) {
	cfg := Default()

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return cfg, errors.Errorf("line %d: expected key:value, got %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		n, err := strconv.Atoi(value)
		if err != nil {
			return cfg, errors.Wrapf(err, "line %d: invalid integer value %q", lineNo, value)
		}

		switch key {
		case "instruction_memory_size":
			if n <= 0 {
				return cfg, errors.Errorf("line %d: %s must be a positive integer, got %d", lineNo, key, n)
			}
			cfg.InstructionMemorySize = n
		case "data_memory_size":
			if n <= 0 {
				return cfg, errors.Errorf("line %d: %s must be a positive integer, got %d", lineNo, key, n)
			}
			cfg.DataMemorySize = n
		case "keyboard_buffer":
			if n < 0 {
				return cfg, errors.Errorf("line %d: %s must be a non-negative integer, got %d", lineNo, key, n)
			}
			cfg.KeyboardBuffer = n
		case "video_memory_start":
			if n < 0 {
				return cfg, errors.Errorf("line %d: %s must be a non-negative integer, got %d", lineNo, key, n)
			}
			cfg.VideoMemoryStart = n
		case "video_memory_end":
			if n < 0 {
				return cfg, errors.Errorf("line %d: %s must be a non-negative integer, got %d", lineNo, key, n)
			}
			cfg.VideoMemoryEnd = n
		default:
			return cfg, errors.Wrapf(ErrUnknownKey, "line %d: %q", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
