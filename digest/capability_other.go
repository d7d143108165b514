//go:build !amd64 && !arm64

package digest

func init() {
	initKernel(false)
}
