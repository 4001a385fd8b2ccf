// Package angles builds the per-projection sin/cos lookup tables consumed
// by the back-projection kernel (spec §3 "Angle tables", §9 "one-shot
// angle-table initialization").
package angles

import (
	"strconv"
	"strings"
	"sync"

	"github.com/chewxy/math32"

	"github.com/gocbct/fdkrecon/internal/logging"
)

// Table holds the precomputed sin/cos of every projection angle, indexed by
// projection ordinal (spec §3). Once built it is read-only.
type Table struct {
	Sin []float32
	Cos []float32
}

// Len returns the number of angles in the table.
func (t Table) Len() int { return len(t.Sin) }

// At returns (sin, cos) for projection index i.
func (t Table) At(i int) (sin, cos float32) {
	return t.Sin[i], t.Cos[i]
}

// BuildUniform fills a table of n entries with a uniform angular step of
// stepDeg degrees per projection: phi_i = i * stepDeg (spec §3, §8 scenario
// S6).
func BuildUniform(n int, stepDeg float32) Table {
	t := Table{Sin: make([]float32, n), Cos: make([]float32, n)}
	stepRad := stepDeg * (math32.Pi / 180)
	for i := 0; i < n; i++ {
		phi := float32(i) * stepRad
		t.Sin[i] = math32.Sin(phi)
		t.Cos[i] = math32.Cos(phi)
	}
	return t
}

// ParseDegrees parses one decimal angle per line, in degrees (spec §6). The
// decimal separator is '.' by default; if the first non-blank line contains
// a comma, the whole file is treated as using ',' (legacy German locale).
// Blank lines and trailing whitespace are tolerated. Lines that still fail
// to parse after separator normalisation are skipped with a Warn log —
// parsing never fails the whole table, per spec §7's "recoverable
// anomalies" policy.
func ParseDegrees(lines []string) []float64 {
	commaLocale := false
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		commaLocale = strings.Contains(l, ",")
		break
	}

	out := make([]float64, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if commaLocale {
			l = strings.Replace(l, ",", ".", 1)
		}
		v, err := strconv.ParseFloat(l, 64)
		if err != nil {
			logging.Log.Warn().Str("line", l).Err(err).Msg("angles: skipping unparsable angle line")
			continue
		}
		out = append(out, v)
	}
	return out
}

// Build constructs the angle table from parsed degree values. When the
// number of parsed angles does not match nProj, the table is padded (or
// truncated) with synthetic uniform-step angles and a Warn is logged — the
// Open Question in spec §9 is resolved in favour of padding, never fatal.
func Build(parsedDeg []float64, nProj int, rotAngleDeg float32) Table {
	t := Table{Sin: make([]float32, nProj), Cos: make([]float32, nProj)}

	if len(parsedDeg) != nProj {
		logging.Log.Warn().
			Int("parsed", len(parsedDeg)).
			Int("n_proj", nProj).
			Msg("angles: angle count does not match n_proj, padding with synthetic uniform-step angles")
	}

	stepRad := rotAngleDeg * (math32.Pi / 180)
	for i := 0; i < nProj; i++ {
		var phi float32
		if i < len(parsedDeg) {
			phi = float32(parsedDeg[i]) * (math32.Pi / 180)
		} else {
			phi = float32(i) * stepRad
		}
		t.Sin[i] = math32.Sin(phi)
		t.Cos[i] = math32.Cos(phi)
	}
	return t
}

// Builder guarantees the angle table is constructed exactly once no matter
// how many back-projection workers race to populate it (spec §9): the
// contract is write-once, read-many, and no kernel may observe a partially
// built table.
type Builder struct {
	once  sync.Once
	table Table
}

// Build returns the shared Table, building it on the first call. Every
// later call, concurrent or not, observes the same fully-built value.
func (b *Builder) Build(parsedDeg []float64, nProj int, rotAngleDeg float32) Table {
	b.once.Do(func() {
		b.table = Build(parsedDeg, nProj, rotAngleDeg)
	})
	return b.table
}
