//go:build arm || 386 || mipsle

package requests

const (
	SizeFormat = 204
	SizeBuffer = 68
)
