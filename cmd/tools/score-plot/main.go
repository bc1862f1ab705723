// Command score-plot renders the scoring curves as PNGs so tuning changes
// can be eyeballed before they reach a live run. Each curve sweeps one
// subject along the view axis of a single camera and records the
// sub-scores and composite at each distance.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/scenecast/director/internal/config"
	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/geom"
)

var (
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	outputDir  = flag.String("o", "plots", "Output directory for PNG files")
	steps      = flag.Int("steps", 200, "Number of distance samples")
)

func main() {
	flag.Parse()

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output dir: %v", err)
	}

	cam, err := geom.NewCamera("probe", mgl64.Vec3{}, mgl64.Vec3{0, 0, -1}, 60, 16.0/9.0, 0.01, 1000)
	if err != nil {
		log.Fatalf("failed to build probe camera: %v", err)
	}

	wd, wc, wa := cfg.GetWeights()
	scoreCfg := director.ScoreConfig{
		OptimalDistance: cfg.GetOptimalDistance(),
		Weights:         director.ScoreWeights{Distance: wd, Center: wc, Angle: wa},
		CloseUpMax:      cfg.GetCloseUpMax(),
		MediumMax:       cfg.GetMediumMax(),
	}

	maxDist := 2.5 * scoreCfg.OptimalDistance
	distPts := make(plotter.XYs, 0, *steps)
	anglePts := make(plotter.XYs, 0, *steps)
	totalPts := make(plotter.XYs, 0, *steps)
	for i := 1; i <= *steps; i++ {
		d := maxDist * float64(i) / float64(*steps)
		subj := director.Subject{
			ID:        "probe-subject",
			Position:  mgl64.Vec3{0, 0, -d},
			Direction: mgl64.Vec3{0, 0, 1}, // facing the camera
		}
		rel := director.Score(cam, subj, scoreCfg)
		distPts = append(distPts, plotter.XY{X: d, Y: rel.DistanceScore})
		anglePts = append(anglePts, plotter.XY{X: d, Y: rel.AngleScore})
		totalPts = append(totalPts, plotter.XY{X: d, Y: rel.Score})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Score vs distance (optimal %.1fm)", scoreCfg.OptimalDistance)
	p.X.Label.Text = "distance (m)"
	p.Y.Label.Text = "score"
	p.Y.Min, p.Y.Max = 0, 1.05

	for _, series := range []struct {
		name string
		pts  plotter.XYs
	}{
		{"distance", distPts},
		{"angle", anglePts},
		{"composite", totalPts},
	} {
		line, err := plotter.NewLine(series.pts)
		if err != nil {
			log.Fatalf("failed to build %s line: %v", series.name, err)
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}

	outFile := filepath.Join(*outputDir, "score_vs_distance.png")
	if err := p.Save(14*vg.Inch, 6*vg.Inch, outFile); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("wrote %s", outFile)
}
