package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Cleanup(RefreshTestMode)

	t.Setenv(testModeEnv, "true")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())

	t.Setenv(testModeEnv, "maybe")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
