package main

import (
	"context"
	"image"
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/image/font"

	"github.com/sells-group/placemap/internal/batch"
	"github.com/sells-group/placemap/internal/layout"
	"github.com/sells-group/placemap/internal/mercator"
	"github.com/sells-group/placemap/internal/place"
	"github.com/sells-group/placemap/internal/render"
	"github.com/sells-group/placemap/internal/sheet"
	"github.com/sells-group/placemap/internal/staticmap"
)

var (
	renderInPath  string
	renderOutPath string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Resolve a workbook and render a labeled map PNG",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		records, err := sheet.Load(renderInPath)
		if err != nil {
			return err
		}

		resolver, cleanup, err := newResolver(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		bar := progressbar.NewOptions(len(records),
			progressbar.OptionSetDescription("Resolving addresses"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		runner := batch.NewRunner(resolver)
		for res := range runner.Run(ctx, records) {
			_ = bar.Add(1)
			if res.Err != nil {
				if ctx.Err() != nil {
					return res.Err
				}
				continue
			}
			records[res.Index] = res.Record
		}

		var resolved []place.Record
		for _, r := range records {
			if r.Resolved && r.Visible {
				resolved = append(resolved, r)
			}
		}
		if len(resolved) == 0 {
			return eris.New("no rows resolved to coordinates; nothing to render")
		}

		img, err := renderMap(ctx, resolved)
		if err != nil {
			return err
		}

		out, err := os.Create(renderOutPath)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer func() { _ = out.Close() }()

		if err := render.WritePNG(out, img); err != nil {
			return err
		}

		zap.L().Info("render complete",
			zap.Int("points", len(resolved)),
			zap.String("out", renderOutPath),
		)
		return nil
	},
}

// renderMap fits the viewport around the resolved points, fetches the
// basemap, lays out labels and composes the final image.
func renderMap(ctx context.Context, records []place.Record) (image.Image, error) {
	width, height := cfg.Map.Width, cfg.Map.Height

	points := make([]mercator.Point, len(records))
	for i, r := range records {
		points[i] = mercator.Point{Lon: r.Longitude, Lat: r.Latitude}
	}
	centerLat, centerLon, zoom := mercator.FitViewport(points, width, height, cfg.Map.Padding)

	fetcher, err := newBasemapFetcher(cfg)
	if err != nil {
		return nil, err
	}
	// Providers only serve integer zoom levels. Fetch one level out, then
	// enlarge and center-crop so the image matches the fractional fit zoom
	// the overlay is projected at.
	apiZoom := math.Floor(zoom)
	basemap, err := fetcher.Fetch(ctx, staticmap.Spec{
		CenterLon: centerLon,
		CenterLat: centerLat,
		Zoom:      int(apiZoom),
		Width:     width,
		Height:    height,
	})
	if err != nil {
		return nil, err
	}
	if zoom > apiZoom {
		basemap = render.ScaleCrop(basemap, math.Pow(2, zoom-apiZoom), width, height)
	}

	face := labelFace()
	labels, pins := buildOverlay(records, zoom, centerLat, centerLon, width, height, render.Measure(face))
	if dropped := len(records) - len(pins); dropped > 0 {
		zap.L().Warn("render: points off canvas skipped", zap.Int("count", dropped))
	}

	placed := layout.Place(labels)
	if n := layout.OverlapCount(placed); n > 0 {
		zap.L().Warn("render: residual label overlaps", zap.Int("pairs", n))
	}

	return render.Compose(basemap, pins, placed, face), nil
}

// buildOverlay projects records into canvas space and pairs each on-canvas
// point with its layout request. Points projecting outside the canvas are
// dropped, not clipped. Lower order numbers claim their preferred slots first.
func buildOverlay(records []place.Record, zoom, centerLat, centerLon float64, width, height int, measure func(string) (float64, float64)) ([]layout.Label, []render.Pin) {
	ordered := make([]place.Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Order < ordered[j].Order })

	var labels []layout.Label
	var pins []render.Pin
	for _, r := range ordered {
		px, py := mercator.Project(r.Latitude, r.Longitude, zoom, centerLat, centerLon, width, height)
		if px < 0 || px > width || py < 0 || py > height {
			continue
		}
		w, h := measure(r.DisplayName)
		labels = append(labels, layout.Label{
			AnchorX:   float64(px),
			AnchorY:   float64(py),
			Width:     w,
			Height:    h,
			Preferred: r.LabelDir,
			PinRadius: render.DefaultPinRadius,
		})
		pins = append(pins, render.Pin{
			Record: r,
			X:      float64(px),
			Y:      float64(py),
			Radius: render.DefaultPinRadius,
		})
	}
	return labels, pins
}

// labelFace loads the configured font, falling back to the bundled face.
func labelFace() font.Face {
	if cfg.Map.FontPath != "" {
		face, err := render.LoadFace(cfg.Map.FontPath, cfg.Map.FontSize)
		if err == nil {
			return face
		}
		zap.L().Warn("render: font unusable, using bundled face",
			zap.String("path", cfg.Map.FontPath),
			zap.Error(err))
	}
	return render.DefaultFace(cfg.Map.FontSize)
}

func init() {
	renderCmd.Flags().StringVar(&renderInPath, "in", "", "input XLSX workbook (required)")
	renderCmd.Flags().StringVar(&renderOutPath, "out", "map.png", "output PNG path")
	_ = renderCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(renderCmd)
}
