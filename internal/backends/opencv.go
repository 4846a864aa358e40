//go:build opencv

package backends

import (
	"gazer/internal/capture"
	"gazer/internal/opencv"
)

func init() {
	registrars = append(registrars, func(f *capture.BackendFactory, _ Options) {
		f.Register(opencv.Name, opencv.NewBackend)
	})
}
