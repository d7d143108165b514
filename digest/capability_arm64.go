//go:build arm64

package digest

import "golang.org/x/sys/cpu"

func init() {
	initKernel(cpu.ARM64.HasASIMD)
}
