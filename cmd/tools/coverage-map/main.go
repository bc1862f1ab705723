// Command coverage-map renders an HTML heatmap of camera coverage: for each
// cell of a ground-plane grid it scores a hypothetical subject standing
// there and colors the cell by the best camera's composite score. Dead
// zones, where no camera frames the subject at all, stay at zero.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/scenecast/director/internal/config"
	"github.com/scenecast/director/internal/director"
	"github.com/scenecast/director/internal/scene"
)

var (
	camerasPath = flag.String("cameras", "", "Path to scene cameras JSON (required)")
	configPath  = flag.String("config", "", "Path to tuning config JSON (optional)")
	output      = flag.String("o", "coverage.html", "Output HTML file")
	extent      = flag.Float64("extent", 10, "Half-width of the sampled square, metres")
	cells       = flag.Int("cells", 60, "Grid resolution per axis")
)

func main() {
	flag.Parse()

	if *camerasPath == "" {
		log.Fatal("-cameras is required")
	}
	cams, err := scene.LoadCameras(*camerasPath)
	if err != nil {
		log.Fatalf("failed to load cameras: %v", err)
	}

	cfg := config.Empty()
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	wd, wc, wa := cfg.GetWeights()
	scoreCfg := director.ScoreConfig{
		OptimalDistance: cfg.GetOptimalDistance(),
		Weights:         director.ScoreWeights{Distance: wd, Center: wc, Angle: wa},
		CloseUpMax:      cfg.GetCloseUpMax(),
		MediumMax:       cfg.GetMediumMax(),
	}

	step := 2 * *extent / float64(*cells)
	data := make([]opts.ScatterData, 0, *cells**cells)
	covered := 0
	for ix := 0; ix < *cells; ix++ {
		for iz := 0; iz < *cells; iz++ {
			x := -*extent + (float64(ix)+0.5)*step
			z := -*extent + (float64(iz)+0.5)*step

			best := 0.0
			for _, cam := range cams {
				// The probe subject faces the camera under test, so the map
				// shows the best case at each spot.
				facing := cam.Position.Sub(mgl64.Vec3{x, 0, z})
				if facing.Len() < 1e-9 {
					continue
				}
				subj := director.Subject{
					ID:        "probe",
					Position:  mgl64.Vec3{x, 0, z},
					Direction: facing,
				}
				rel := director.Score(cam, subj, scoreCfg)
				if rel.Visible && rel.Score > best {
					best = rel.Score
				}
			}
			if best > 0 {
				covered++
			}
			data = append(data, opts.ScatterData{Value: []interface{}{x, z, best}})
		}
	}

	pad := *extent * 1.05
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Camera Coverage", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Camera coverage map",
			Subtitle: fmt.Sprintf("cameras=%d covered=%.0f%%", len(cams), 100*float64(covered)/float64(len(data))),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	symbol := math.Max(2, 800/float64(*cells))
	scatter.AddSeries("coverage", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: symbol}))

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("failed to create output file: %v", err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		log.Fatalf("failed to render chart: %v", err)
	}
	log.Printf("wrote %s", *output)
}
