package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, 4096, cfg.InstructionMemorySize)
	require.Equal(t, 4096, cfg.DataMemorySize)
	require.Equal(t, 0, cfg.KeyboardBuffer)
	require.Equal(t, 1, cfg.VideoMemoryStart)
	require.Equal(t, 1+80*25-1, cfg.VideoMemoryEnd)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(strings.NewReader(`
		# a comment
		instruction_memory_size: 2048
		data_memory_size: 2048 ; trailing comment
		keyboard_buffer: 0
	`))
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.InstructionMemorySize)
	require.Equal(t, 2048, cfg.DataMemorySize)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load(strings.NewReader("bogus_key: 1\n"))
	require.ErrorIs(t, err, ErrUnknownKey)
}

func TestLoadRejectsNonPositiveSize(t *testing.T) {
	_, err := Load(strings.NewReader("instruction_memory_size: 0\n"))
	require.Error(t, err)

	_, err = Load(strings.NewReader("data_memory_size: -1\n"))
	require.Error(t, err)
}

func TestLoadAcceptsZeroAddress(t *testing.T) {
	cfg, err := Load(strings.NewReader("keyboard_buffer: 0\n"))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.KeyboardBuffer)

	cfg, err = Load(strings.NewReader("video_memory_start: 0\n"))
	require.NoError(t, err)
	require.Equal(t, 0, cfg.VideoMemoryStart)
}

func TestLoadRejectsNegativeAddress(t *testing.T) {
	_, err := Load(strings.NewReader("keyboard_buffer: -1\n"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, err := Load(strings.NewReader("not_a_key_value_pair\n"))
	require.Error(t, err)
}
