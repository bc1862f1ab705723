// Package scene loads reconstruction output: the camera poses exported by
// the training pipeline and the dense point cloud used for display.
package scene

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/scenecast/director/internal/geom"
	"github.com/scenecast/director/internal/monitoring"
	"github.com/scenecast/director/internal/pointcloud"
)

// cameraEntry matches one element of the reconstruction's cameras.json. The
// rotation is a world-from-camera 3x3 matrix; the view direction is the
// negated third row.
type cameraEntry struct {
	ID       json.Number   `json:"id"`
	ImgName  string        `json:"img_name"`
	Position [3]float64    `json:"position"`
	Rotation [3][3]float64 `json:"rotation"`
	FX       float64       `json:"fx"`
	FY       float64       `json:"fy"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
}

// cloudPayload matches the exported point-cloud JSON.
type cloudPayload struct {
	Points [][3]float64 `json:"points"`
	Colors [][3]float64 `json:"colors"`
}

// Scene bundles everything loaded from one reconstruction.
type Scene struct {
	Cameras []geom.Camera
	Cloud   pointcloud.Cloud
}

// LoadCameras parses a cameras.json file. Entries with a degenerate rotation
// (zero view direction) are skipped with a log line rather than failing the
// whole load; an upstream export bug on one camera should not blank the UI.
func LoadCameras(path string) ([]geom.Camera, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cameras file: %w", err)
	}
	return ParseCameras(data)
}

// ParseCameras decodes the cameras.json payload.
func ParseCameras(data []byte) ([]geom.Camera, error) {
	var entries []cameraEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing cameras JSON: %w", err)
	}

	cams := make([]geom.Camera, 0, len(entries))
	for _, e := range entries {
		id := geom.CameraID(e.ID.String())
		pos := mgl64.Vec3{e.Position[0], e.Position[1], e.Position[2]}
		// Third row of the rotation is the camera's backward axis; negate
		// it to get where the camera looks.
		dir := mgl64.Vec3{-e.Rotation[2][0], -e.Rotation[2][1], -e.Rotation[2][2]}

		fov := geom.DefaultFOVDeg
		aspect := geom.DefaultAspect
		if e.FX > 0 && e.Width > 0 {
			fov = focalToFOVDeg(e.FX, float64(e.Width))
		}
		if e.Width > 0 && e.Height > 0 {
			aspect = float64(e.Width) / float64(e.Height)
		}

		cam, err := geom.NewCamera(id, pos, dir, fov, aspect, geom.DefaultNear, geom.DefaultFar)
		if err != nil {
			monitoring.Logf("scene: skipping camera %s: %v", id, err)
			continue
		}
		cams = append(cams, cam)
	}
	if len(cams) == 0 && len(entries) > 0 {
		return nil, fmt.Errorf("all %d camera entries were degenerate", len(entries))
	}
	return cams, nil
}

// LoadCloud parses an exported point-cloud JSON file.
func LoadCloud(path string) (pointcloud.Cloud, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pointcloud.Cloud{}, fmt.Errorf("reading point cloud file: %w", err)
	}
	return ParseCloud(data)
}

// ParseCloud decodes the point-cloud payload and validates the parallel
// color array.
func ParseCloud(data []byte) (pointcloud.Cloud, error) {
	var payload cloudPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return pointcloud.Cloud{}, fmt.Errorf("parsing point cloud JSON: %w", err)
	}

	cloud := pointcloud.Cloud{Points: make([]mgl64.Vec3, len(payload.Points))}
	for i, p := range payload.Points {
		cloud.Points[i] = mgl64.Vec3{p[0], p[1], p[2]}
	}
	if len(payload.Colors) > 0 {
		cloud.Colors = make([]mgl64.Vec3, len(payload.Colors))
		for i, c := range payload.Colors {
			cloud.Colors[i] = mgl64.Vec3{clamp01(c[0]), clamp01(c[1]), clamp01(c[2])}
		}
	}
	if err := cloud.Validate(); err != nil {
		return pointcloud.Cloud{}, fmt.Errorf("point cloud payload: %w", err)
	}
	return cloud, nil
}

// Load reads a full scene from a cameras.json and a points JSON file.
func Load(camerasPath, cloudPath string) (*Scene, error) {
	cams, err := LoadCameras(camerasPath)
	if err != nil {
		return nil, err
	}
	cloud, err := LoadCloud(cloudPath)
	if err != nil {
		return nil, err
	}
	return &Scene{Cameras: cams, Cloud: cloud}, nil
}

// focalToFOVDeg converts a focal length in pixels to a horizontal field of
// view in degrees: fov = 2*atan(width / 2fx).
func focalToFOVDeg(fx, width float64) float64 {
	return 2 * math.Atan(width/(2*fx)) * 180 / math.Pi
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
