// Package tracking consumes the live subject feed: a push-style websocket
// stream, a periodic HTTP poll fallback, and a synthetic generator used for
// demos and when the stream's retry budget is exhausted.
package tracking

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/geom"
	"github.com/scenecast/director/internal/monitoring"
)

// Update is one tick of subject data, ready for the relation builder.
type Update struct {
	TimestampNanos int64
	Subjects       []director.Subject
}

// subjectMessage matches one subject in the wire payload.
type subjectMessage struct {
	ID        string      `json:"id"`
	Position  [3]float64  `json:"position"`
	Direction [3]float64  `json:"direction"`
	Velocity  *[3]float64 `json:"velocity,omitempty"`
}

// updateMessage is the per-tick payload: timestamp in seconds plus the
// subject list.
type updateMessage struct {
	Timestamp float64          `json:"timestamp"`
	Subjects  []subjectMessage `json:"subjects"`
}

// cameraMessage matches one camera in the camera-list payload.
type cameraMessage struct {
	ID        string     `json:"id"`
	Position  [3]float64 `json:"position"`
	Direction [3]float64 `json:"direction"`
	FOV       float64    `json:"fov"`
	IsActive  *bool      `json:"is_active,omitempty"`
}

type cameraListMessage struct {
	Cameras []cameraMessage `json:"cameras"`
}

// ParseUpdate decodes a tracking tick. Subjects without an id are dropped
// with a log line; subjects with malformed coordinates are passed through
// because the scorer degrades them to invisible rather than failing.
func ParseUpdate(data []byte) (Update, error) {
	var msg updateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Update{}, fmt.Errorf("parsing tracking update: %w", err)
	}

	u := Update{
		TimestampNanos: int64(msg.Timestamp * float64(time.Second)),
		Subjects:       make([]director.Subject, 0, len(msg.Subjects)),
	}
	for _, s := range msg.Subjects {
		if s.ID == "" {
			monitoring.Logf("tracking: dropping subject with empty id")
			continue
		}
		subj := director.Subject{
			ID:        director.SubjectID(s.ID),
			Position:  mgl64.Vec3{s.Position[0], s.Position[1], s.Position[2]},
			Direction: mgl64.Vec3{s.Direction[0], s.Direction[1], s.Direction[2]},
		}
		if s.Velocity != nil {
			subj.Velocity = mgl64.Vec3{s.Velocity[0], s.Velocity[1], s.Velocity[2]}
		}
		u.Subjects = append(u.Subjects, subj)
	}
	return u, nil
}

// ParseCameraList decodes a camera-list payload into scene cameras.
// Inactive and degenerate entries are skipped.
func ParseCameraList(data []byte) ([]geom.Camera, error) {
	var msg cameraListMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing camera list: %w", err)
	}

	cams := make([]geom.Camera, 0, len(msg.Cameras))
	for _, c := range msg.Cameras {
		if c.IsActive != nil && !*c.IsActive {
			continue
		}
		fov := c.FOV
		if fov <= 0 || math.IsNaN(fov) {
			fov = geom.DefaultFOVDeg
		}
		cam, err := geom.NewCamera(
			geom.CameraID(c.ID),
			mgl64.Vec3{c.Position[0], c.Position[1], c.Position[2]},
			mgl64.Vec3{c.Direction[0], c.Direction[1], c.Direction[2]},
			fov, geom.DefaultAspect, geom.DefaultNear, geom.DefaultFar,
		)
		if err != nil {
			monitoring.Logf("tracking: skipping camera %q: %v", c.ID, err)
			continue
		}
		cams = append(cams, cam)
	}
	return cams, nil
}
