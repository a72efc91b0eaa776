package gc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultParamsMatchHostDefaults(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, int64(200), p.Pause)
	assert.Equal(t, int64(100), p.StepMul)
	assert.Equal(t, int64(13), p.StepSize)
	assert.Equal(t, int64(8192), p.stepSizeBytes())
}

func TestFromEnvOverridesOnlyPresentVars(t *testing.T) {
	os.Setenv("LUAGC_PAUSE", "150")
	os.Setenv("LUAGC_MINORMUL", "10")
	defer os.Unsetenv("LUAGC_PAUSE")
	defer os.Unsetenv("LUAGC_MINORMUL")

	p := DefaultParams().FromEnv()
	assert.Equal(t, int64(150), p.Pause)
	assert.Equal(t, int64(10), p.MinorMul)
	assert.Equal(t, int64(100), p.StepMul) // untouched
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	os.Setenv("LUAGC_PAUSE", "not-a-number")
	defer os.Unsetenv("LUAGC_PAUSE")

	p := DefaultParams().FromEnv()
	assert.Equal(t, int64(200), p.Pause)
}

func TestSetPauseNeverDropsBelowEstimate(t *testing.T) {
	c := New(Incremental, nil)
	c.totalBytes = 1000
	c.setPause(100) // pause=200% of 100 -> threshold 200, still < totalBytes
	assert.Equal(t, int64(0), c.debt)
}
