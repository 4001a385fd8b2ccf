package engine

import (
	"github.com/gocbct/fdkrecon/backprojection"
	"github.com/gocbct/fdkrecon/geometry"
)

// Option configures an Engine at construction time using the functional
// options pattern.
type Option func(*config)

type config struct {
	angleLines  []string
	roi         *geometry.ROI
	newBuffer3D backprojection.NewBuffer3DFunc
}

// WithAngleLines supplies the angle-file contents (one angle per line, see
// spec §6); omit to fall back to the uniform rot_angle step.
func WithAngleLines(lines []string) Option {
	return func(c *config) { c.angleLines = lines }
}

// WithROI shrinks the computed volume geometry before scheduling (spec §3).
func WithROI(roi geometry.ROI) Option {
	return func(c *config) { c.roi = &roi }
}

// WithBuffer3DFactory overrides the sub-volume buffer backend, mainly for
// tests that want a lightweight fake instead of tensorbackend.
func WithBuffer3DFactory(f backprojection.NewBuffer3DFunc) Option {
	return func(c *config) { c.newBuffer3D = f }
}

func apply(opts ...Option) config {
	var c config
	for _, o := range opts {
		o(&c)
	}
	return c
}
