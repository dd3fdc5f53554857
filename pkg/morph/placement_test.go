package morph

import (
	"math"
	"math/rand/v2"
	"sort"
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func azimuth(v math32.Vector3) float64 {
	return math.Atan2(float64(v.Z), float64(v.X))
}

// angleDiff returns b-a wrapped into [0, 2π).
func angleDiff(a, b float64) float64 {
	d := math.Mod(b-a, twoPi)
	if d < 0 {
		d += twoPi
	}
	return d
}

func TestPlacer_GoldenAngleSpacing(t *testing.T) {
	p := NewPlacer(DefaultConfig(), testRand())
	photos := p.Photos(12, nil)
	require.Len(t, photos, 12)

	want := math.Mod(GoldenAngle, twoPi)
	for i := 1; i < len(photos); i++ {
		got := angleDiff(azimuth(photos[i-1].Structural), azimuth(photos[i].Structural))
		assert.InDelta(t, want, got, 1e-4, "photo %d", i)
	}
	d := angleDiff(p.StartAngle(), azimuth(photos[0].Structural))
	assert.InDelta(t, 0, math.Min(d, twoPi-d), 1e-4)
}

func TestPlacer_SequenceContinuesAcrossUploads(t *testing.T) {
	p := NewPlacer(DefaultConfig(), testRand())
	first := p.Photos(3, nil)
	second := p.Photos(2, nil)

	got := angleDiff(azimuth(first[2].Structural), azimuth(second[0].Structural))
	assert.InDelta(t, math.Mod(GoldenAngle, twoPi), got, 1e-4)
}

func TestPlacer_Coverage(t *testing.T) {
	const n = 40
	p := NewPlacer(DefaultConfig(), testRand())
	photos := p.Photos(n, nil)

	angles := make([]float64, 0, n)
	for _, ph := range photos {
		a := azimuth(ph.Structural)
		if a < 0 {
			a += twoPi
		}
		angles = append(angles, a)
	}
	sort.Float64s(angles)

	maxGap := twoPi - angles[n-1] + angles[0]
	for i := 1; i < n; i++ {
		maxGap = max(maxGap, angles[i]-angles[i-1])
	}
	assert.Less(t, maxGap, 3*twoPi/n, "golden-angle placement should leave no wide gap")
}

func TestPlacer_PhotoGeometry(t *testing.T) {
	cfg := DefaultConfig()
	p := NewPlacer(cfg, testRand())
	half := cfg.Tree.Height/2 - cfg.Photos.EdgeMargin

	for _, ph := range p.Photos(50, []string{"a.jpg", "b.jpg"}) {
		s := ph.Structural
		assert.LessOrEqual(t, math32.Abs(s.Y), half)

		horiz := math32.Sqrt(s.X*s.X + s.Z*s.Z)
		assert.InDelta(t, float64(p.coneRadius(s.Y)+cfg.Photos.SurfaceOffset), float64(horiz), 1e-3)

		// scatter moves outward by at least ScatterMin, minus the vertical jitter
		assert.Greater(t, ph.Scatter.Length(), s.Length()+cfg.Photos.ScatterMin-cfg.Photos.ScatterJitter/2)

		// the resting basis faces away from the trunk
		normal := math32.Vec3(s.X, 0, s.Z).Normal()
		assert.Greater(t, axisZ.MulQuat(ph.Basis).Dot(normal), float32(0.99))

		assert.Equal(t, KindPhoto, ph.Kind)
		assert.NotZero(t, ph.UploadID)
	}
}

func TestPlacer_PhotoNames(t *testing.T) {
	p := NewPlacer(DefaultConfig(), testRand())
	photos := p.Photos(3, []string{"a.jpg", "b.jpg"})
	assert.Equal(t, "a.jpg", photos[0].Name)
	assert.Equal(t, "b.jpg", photos[1].Name)
	assert.Empty(t, photos[2].Name)
}

func TestPlacer_Tree(t *testing.T) {
	cfg := SmallConfig()
	p := NewPlacer(cfg, testRand())
	ents := p.Tree()

	counts := map[Kind]int{}
	for _, e := range ents {
		counts[e.Kind]++
	}
	assert.Equal(t, cfg.Counts.Foliage, counts[KindFoliage])
	assert.Equal(t, cfg.Counts.Dust, counts[KindDust])
	assert.Equal(t, cfg.Counts.Ribbon, counts[KindRibbon])
	assert.Equal(t, cfg.Counts.Boxes, counts[KindOrnamentBox])
	assert.Equal(t, cfg.Counts.Spheres, counts[KindOrnamentSphere])
	assert.Equal(t, 1, counts[KindStar])

	for _, e := range ents {
		switch e.Kind {
		case KindFoliage:
			assert.LessOrEqual(t, math32.Abs(e.Structural.Y), cfg.Tree.Height/2)
			r := e.Scatter.Length()
			assert.True(t, r >= 39.99 && r <= 80.01, "foliage scatter radius %v", r)
		case KindOrnamentBox, KindOrnamentSphere:
			horiz := math32.Sqrt(e.Structural.X*e.Structural.X + e.Structural.Z*e.Structural.Z)
			assert.GreaterOrEqual(t, horiz+1e-3, p.coneRadius(e.Structural.Y))
		case KindStar:
			assert.Equal(t, cfg.Tree.Height/2+cfg.StarHeight, e.Structural.Y)
		}
	}
}

func TestPlacer_Deterministic(t *testing.T) {
	a := NewPlacer(SmallConfig(), testRand()).Tree()
	b := NewPlacer(SmallConfig(), testRand()).Tree()
	assert.Equal(t, a, b)
}

func TestRibbonPoint_Loops(t *testing.T) {
	cfg := DefaultConfig()
	for _, tm := range []float32{0, 3.3, 14.9, 100} {
		p := ribbonPoint(&cfg, 5, tm)
		assert.GreaterOrEqual(t, p.Y, -cfg.Tree.Height/2)
		assert.Less(t, p.Y, cfg.Tree.Height/2)
		horiz := math32.Sqrt(p.X*p.X + p.Z*p.Z)
		assert.GreaterOrEqual(t, horiz, cfg.RibbonClearance-1e-3)
	}
}
