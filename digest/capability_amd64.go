//go:build amd64

package digest

import "golang.org/x/sys/cpu"

func init() {
	// The wide kernel computes eight variable shifts before its single
	// test; cores with AVX2-class ALUs hide that latency, older ones
	// do better with the scalar loop's early exit.
	initKernel(cpu.X86.HasAVX2)
}
