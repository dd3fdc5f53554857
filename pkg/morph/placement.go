package morph

import (
	"math"
	"sync"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

// GoldenAngle is the angular step between consecutive photos. Being close to
// an irrational fraction of a turn, successive photos never line up.
const GoldenAngle = 2.39996

const twoPi = 2 * math.Pi

// Rand is the random source used for placement and focus selection.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

var zero = math32.Vec3(0, 0, 0)

// Palette used by the procedural generators.
var (
	ColorGold      = [3]float32{1.0, 0.84, 0.0}
	ColorRed       = [3]float32{0.8, 0.0, 0.0}
	ColorEmerald   = [3]float32{0.01, 0.25, 0.05}
	ColorDeepGreen = [3]float32{0.0, 0.12, 0.03}
	ColorLimeGreen = [3]float32{0.05, 0.3, 0.05}
	ColorWhite     = [3]float32{1.0, 1.0, 1.0}
	ColorBlue      = [3]float32{0.1, 0.2, 0.8}
)

// Placer seeds structural and scatter positions. Photos are spaced by the
// golden angle from a start angle chosen once per scene build, continuing
// the sequence across uploads.
type Placer struct {
	cfg Config

	mu         sync.Mutex
	rng        Rand
	startAngle float64
	placed     int
}

// NewPlacer creates a placer and draws the scene's start angle.
func NewPlacer(cfg Config, rng Rand) *Placer {
	return &Placer{
		cfg:        cfg,
		rng:        rng,
		startAngle: rng.Float64() * twoPi,
	}
}

// StartAngle returns the angle of the first photo.
func (p *Placer) StartAngle() float64 {
	return p.startAngle
}

// PhotoAngle returns the placement angle of the i-th photo, without jitter.
func (p *Placer) PhotoAngle(i int) float64 {
	return p.startAngle + float64(i)*GoldenAngle
}

// coneRadius is the foliage radius at height y.
func (p *Placer) coneRadius(y float32) float32 {
	h := p.cfg.Tree.Height
	progress := (y + h/2) / h
	return (1 - progress) * p.cfg.Tree.Radius
}

// Photos creates n photo entities around the cone. names may be shorter than n.
func (p *Placer) Photos(n int, names []string) []Entity {
	p.mu.Lock()
	defer p.mu.Unlock()

	pc := p.cfg.Photos
	h := p.cfg.Tree.Height
	out := make([]Entity, 0, n)

	for i := 0; i < n; i++ {
		theta := p.PhotoAngle(p.placed)
		if pc.AngleJitter > 0 {
			theta += p.rng.Float64() * pc.AngleJitter
		}
		p.placed++

		y := float32(p.rng.Float64()-0.5) * (h - 2*pc.EdgeMargin)
		r := p.coneRadius(y) + pc.SurfaceOffset

		cos, sin := float32(math.Cos(theta)), float32(math.Sin(theta))
		pos := math32.Vec3(r*cos, y, r*sin)
		normal := math32.Vec3(cos, 0, sin)

		e := Entity{
			Kind:       KindPhoto,
			Structural: pos,
			Scatter:    p.scatterOutward(pos, pc.ScatterMin, pc.ScatterRange, pc.ScatterJitter),
			Basis:      faceAlong(normal),
			Offset:     float32(p.rng.Float64() * twoPi),
			Scale:      1,
			Color:      ColorWhite,
			UploadID:   uuid.New(),
		}
		if i < len(names) {
			e.Name = names[i]
		}
		out = append(out, e)
	}
	return out
}

// scatterOutward pushes pos away from the origin along its own direction by
// U(min, min+span), then spreads it vertically by ±jitter/2.
func (p *Placer) scatterOutward(pos math32.Vector3, min, span, jitter float32) math32.Vector3 {
	dir := pos.Normal()
	dist := min + float32(p.rng.Float64())*span
	sc := pos.Add(dir.MulScalar(dist))
	sc.Y += float32(p.rng.Float64()-0.5) * jitter
	return sc
}

// Tree generates the procedural assembled tree: foliage, dust, ribbon,
// ornaments and the top star.
func (p *Placer) Tree() []Entity {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.cfg.Counts
	out := make([]Entity, 0, c.Foliage+c.Dust+c.Ribbon+c.Boxes+c.Spheres+1)
	out = p.foliage(out, c.Foliage)
	out = p.dust(out, c.Dust)
	out = p.ribbon(out, c.Ribbon)
	out = p.ornaments(out, KindOrnamentBox, c.Boxes)
	out = p.ornaments(out, KindOrnamentSphere, c.Spheres)
	out = append(out, p.star())
	return out
}

func (p *Placer) foliage(out []Entity, n int) []Entity {
	h := p.cfg.Tree.Height
	for i := 0; i < n; i++ {
		y := float32(p.rng.Float64())*h - h/2
		bias := float32(math.Pow(p.rng.Float64(), 0.3)) // push toward the surface
		r := p.coneRadius(y) * bias
		theta := p.rng.Float64() * twoPi
		pos := math32.Vec3(r*float32(math.Cos(theta)), y, r*float32(math.Sin(theta)))

		// uniform direction on a sphere of radius 40..80
		sr := 40 + p.rng.Float64()*40
		stheta := p.rng.Float64() * twoPi
		sphi := math.Acos(2*p.rng.Float64() - 1)
		scatter := math32.Vec3(
			float32(sr*math.Sin(sphi)*math.Cos(stheta)),
			float32(sr*math.Sin(sphi)*math.Sin(stheta)),
			float32(sr*math.Cos(sphi)),
		)

		color := ColorDeepGreen
		switch pick := p.rng.Float64(); {
		case pick > 0.95:
			color = ColorLimeGreen
		case pick > 0.8:
			color = ColorEmerald
		}

		out = append(out, Entity{
			Kind:       KindFoliage,
			Structural: pos,
			Scatter:    scatter,
			Basis:      identity(),
			Offset:     float32(p.rng.Float64() * 10),
			Scale:      float32(p.rng.Float64()*0.8 + 0.5),
			Color:      color,
		})
	}
	return out
}

func (p *Placer) dust(out []Entity, n int) []Entity {
	h := p.cfg.Tree.Height
	for i := 0; i < n; i++ {
		r := float32(p.rng.Float64()*20 + 5)
		theta := p.rng.Float64() * twoPi
		y := float32(p.rng.Float64()-0.5) * h * 2
		pos := math32.Vec3(r*float32(math.Cos(theta)), y, r*float32(math.Sin(theta)))

		out = append(out, Entity{
			Kind:       KindDust,
			Structural: pos,
			Scatter:    pos.MulScalar(float32(4 + p.rng.Float64()*2)),
			Basis:      identity(),
			Offset:     float32(p.rng.Float64() * 10),
			Scale:      float32(p.rng.Float64()*0.2 + 0.05),
			Color:      [3]float32{1.0, 0.9, 0.6},
		})
	}
	return out
}

// ribbon particles travel along a spiral; Offset is their height along it.
// Structural holds the spiral position at t=0.
func (p *Placer) ribbon(out []Entity, n int) []Entity {
	h := p.cfg.Tree.Height
	for i := 0; i < n; i++ {
		offset := float32(i) / float32(max(n, 1)) * h
		stheta := p.rng.Float64() * twoPi
		scatter := math32.Vec3(
			float32(60*math.Cos(stheta)),
			float32(p.rng.Float64()-0.5)*60,
			float32(60*math.Sin(stheta)),
		)

		out = append(out, Entity{
			Kind:       KindRibbon,
			Structural: ribbonPoint(&p.cfg, offset, 0),
			Scatter:    scatter,
			Basis:      identity(),
			Offset:     offset,
			Scale:      float32(p.rng.Float64()*0.5 + 0.3),
			Color:      [3]float32{1.0, 0.8, 0.2},
		})
	}
	return out
}

func (p *Placer) ornaments(out []Entity, kind Kind, n int) []Entity {
	h := p.cfg.Tree.Height
	lift, distMult := float32(0), 45.0
	minScale, scaleSpan := 0.3, 0.4
	if kind == KindOrnamentBox {
		lift, distMult = 0.2, 30.0
		minScale, scaleSpan = 0.5, 0.5
	}

	for i := 0; i < n; i++ {
		y := float32(p.rng.Float64())*h - h/2
		r := p.coneRadius(y) + lift
		theta := p.rng.Float64() * twoPi
		pos := math32.Vec3(r*float32(math.Cos(theta)), y, r*float32(math.Sin(theta)))

		euler := math32.Vec3(
			float32(p.rng.Float64()*math.Pi),
			float32(p.rng.Float64()*math.Pi),
			float32(p.rng.Float64()*math.Pi),
		)
		scale := float32(minScale + p.rng.Float64()*scaleSpan)

		scatter := pos.Normal().MulScalar(float32(30 + p.rng.Float64()*distMult))
		scatter.Y += float32(p.rng.Float64()-0.5) * 40

		out = append(out, Entity{
			Kind:       kind,
			Structural: pos,
			Scatter:    scatter,
			Basis:      math32.NewQuatEuler(euler),
			Scale:      scale,
			Color:      ornamentColor(kind, p.rng.Float64()),
		})
	}
	return out
}

func ornamentColor(kind Kind, pick float64) [3]float32 {
	if kind == KindOrnamentBox {
		switch {
		case pick < 0.5:
			return ColorRed
		case pick < 0.8:
			return ColorGold
		default:
			return ColorBlue
		}
	}
	switch {
	case pick < 0.4:
		return ColorGold
	case pick < 0.7:
		return ColorRed
	case pick < 0.9:
		return ColorWhite
	default:
		return ColorEmerald
	}
}

// star sits above the tree top; its scatter form is simply lifted.
func (p *Placer) star() Entity {
	top := p.cfg.Tree.Height/2 + p.cfg.StarHeight
	return Entity{
		Kind:       KindStar,
		Structural: math32.Vec3(0, top, 0),
		Scatter:    math32.Vec3(0, top+p.cfg.StarLift, 0),
		Basis:      identity(),
		Scale:      1,
		Color:      ColorGold,
	}
}

// ribbonPoint returns the spiral position of a ribbon particle at time t.
func ribbonPoint(cfg *Config, offset, t float32) math32.Vector3 {
	h := cfg.Tree.Height
	yRaw := float32(math.Mod(float64(offset+t*cfg.RibbonSpeed), float64(h)))
	if yRaw < 0 {
		yRaw += h
	}
	progress := yRaw / h
	radius := (1-progress)*cfg.Tree.Radius + cfg.RibbonClearance
	angle := float64(progress*cfg.RibbonTurns)*twoPi - float64(t)
	return math32.Vec3(
		float32(math.Cos(angle))*radius,
		yRaw-h/2,
		float32(math.Sin(angle))*radius,
	)
}

func identity() math32.Quat {
	return math32.NewQuat(0, 0, 0, 1)
}

// faceAlong returns the rotation whose local +Z axis points along dir.
func faceAlong(dir math32.Vector3) math32.Quat {
	return lookRotation(dir, zero)
}

// lookRotation returns the rotation whose local +Z axis points from target
// toward eye.
func lookRotation(eye, target math32.Vector3) math32.Quat {
	if eye.DistanceTo(target) < 1e-6 {
		return identity()
	}
	var q math32.Quat
	q.SetFromRotationMatrix(math32.NewLookAt(eye, target, axisY))
	return q
}
