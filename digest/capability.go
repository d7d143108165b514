package digest

import (
	"os"
	"strings"
)

// useWideKernel selects the batch kernel. Set once by the platform
// init functions before any other package code runs; never written
// afterwards, so batch queries need no synchronization.
var useWideKernel bool

// initKernel picks the batch kernel. The GLYPHDIGEST_BATCH environment
// variable ("wide" or "scalar") overrides detection, which is useful
// when comparing the kernels or chasing a miscompare.
func initKernel(wideOK bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GLYPHDIGEST_BATCH"))) {
	case "wide":
		useWideKernel = true
		return
	case "scalar":
		useWideKernel = false
		return
	}
	useWideKernel = wideOK
}
