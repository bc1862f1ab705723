package tracking

import (
	"context"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/timeutil"
)

// SyntheticFeed generates deterministic subject motion: each subject walks a
// circle around the scene origin at its own radius and phase, always facing
// along its direction of travel. Used for demos and as the fallback data
// path once the live stream's retries are exhausted.
type SyntheticFeed struct {
	subjects []syntheticSubject
	interval time.Duration
	clock    timeutil.Clock
	start    time.Time
	updates  chan Update
}

type syntheticSubject struct {
	id     director.SubjectID
	radius float64
	// angular velocity in radians per second
	omega float64
	phase float64
}

// NewSyntheticFeed creates a feed with n subjects ticking at the given
// interval. Subject ids are freshly generated UUIDs; motion is a pure
// function of elapsed time, so two feeds with the same clock produce the
// same trajectories.
func NewSyntheticFeed(n int, interval time.Duration, clock timeutil.Clock) *SyntheticFeed {
	if n <= 0 {
		n = 1
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	f := &SyntheticFeed{
		interval: interval,
		clock:    clock,
		start:    clock.Now(),
		updates:  make(chan Update, 4),
	}
	for i := 0; i < n; i++ {
		f.subjects = append(f.subjects, syntheticSubject{
			id:     director.SubjectID(uuid.NewString()),
			radius: 2 + float64(i),
			omega:  0.4 / (1 + float64(i)*0.5),
			phase:  float64(i) * 2 * math.Pi / float64(n),
		})
	}
	return f
}

// Updates returns the channel on which synthetic ticks are delivered.
func (f *SyntheticFeed) Updates() <-chan Update { return f.updates }

// At computes the feed's state at the given instant.
func (f *SyntheticFeed) At(t time.Time) Update {
	elapsed := t.Sub(f.start).Seconds()
	u := Update{
		TimestampNanos: t.UnixNano(),
		Subjects:       make([]director.Subject, 0, len(f.subjects)),
	}
	for _, s := range f.subjects {
		angle := s.phase + s.omega*elapsed
		pos := mgl64.Vec3{s.radius * math.Cos(angle), 0, s.radius * math.Sin(angle)}
		// Tangent of the circle, i.e. direction of travel.
		dir := mgl64.Vec3{-math.Sin(angle), 0, math.Cos(angle)}
		u.Subjects = append(u.Subjects, director.Subject{
			ID:        s.id,
			Position:  pos,
			Direction: dir,
			Velocity:  dir.Mul(s.radius * s.omega),
		})
	}
	return u
}

// Run emits updates at the configured interval until ctx is cancelled.
func (f *SyntheticFeed) Run(ctx context.Context) error {
	defer close(f.updates)

	ticker := f.clock.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			select {
			case f.updates <- f.At(now):
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}
}
