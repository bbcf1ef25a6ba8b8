package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommand(t *testing.T) {
	cmd := `-hide_banner -loglevel "level+error" -threads 2`
	expected := []string{"-hide_banner", "-loglevel", "level+error", "-threads", "2"}

	args, err := SplitCommand(cmd)
	assert.NoError(t, err)
	assert.Equal(t, expected, args)

	_, err = SplitCommand(`-loglevel "unterminated`)
	assert.Error(t, err)
}

func TestSanitizeGlobalArgs(t *testing.T) {
	t.Run("Valid args", func(t *testing.T) {
		args, _ := SplitCommand(`-hide_banner -nostdin -threads 2`)
		assert.NoError(t, SanitizeGlobalArgs(args))
	})

	t.Run("Output option", func(t *testing.T) {
		args, _ := SplitCommand(`-hide_banner -i /etc/passwd`)
		err := SanitizeGlobalArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "option not allowed in global args: -i")
	})

	t.Run("Disallowed character (semicolon)", func(t *testing.T) {
		args, _ := SplitCommand(`-hide_banner; ls`)
		err := SanitizeGlobalArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: -hide_banner;")
	})

	t.Run("Disallowed character (dollar)", func(t *testing.T) {
		args, _ := SplitCommand(`-threads "$(nproc)"`)
		err := SanitizeGlobalArgs(args)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "disallowed character found in argument: $(nproc)")
	})
}
