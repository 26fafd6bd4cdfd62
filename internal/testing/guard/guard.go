// Package guard forces test mode before any application code reads the flag.
// Import it for side effects from packages whose tests must never touch real
// infrastructure.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ENSTOCK_TEST_MODE") == "" {
			_ = os.Setenv("ENSTOCK_TEST_MODE", "1")
		}
	})
}
