// Package guard switches the process into test mode on import. Test files
// that build the full router import it for its side effect so request
// logging stays quiet.
package guard

import (
	"os"
	"sync"
)

const testModeEnv = "ODYSSEY_TEST_MODE"

var once sync.Once

func init() {
	Enable()
}

// Enable sets ODYSSEY_TEST_MODE unless the caller already chose a value.
func Enable() {
	once.Do(func() {
		if os.Getenv(testModeEnv) == "" {
			_ = os.Setenv(testModeEnv, "1")
		}
	})
}
