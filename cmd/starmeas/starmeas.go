package main

import(
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/skypies/util/histogram"
	"gopkg.in/yaml.v2"

	"github.com/abworrall/starmeas/pkg/adamom"
	"github.com/abworrall/starmeas/pkg/frame"
	"github.com/abworrall/starmeas/pkg/render"
)

var(
	fOutputFilename string
	fOverlay        string
	fSelfTest       bool
	fWorkers        int
	fGain           float64
	fReadNoise      float64
	fVerbosity      int
)

func init() {
	flag.StringVar(&fOutputFilename, "o", "", "write measurement CSV here (default stdout)")
	flag.StringVar(&fOverlay, "overlay", "", "write a PNG overlaying the measured ellipses on the frame")
	flag.BoolVar(&fSelfTest, "selftest", false, "inject a synthetic grid of Gaussians and measure it")
	flag.IntVar(&fWorkers, "workers", 8, "how many sources to measure concurrently")
	flag.Float64Var(&fGain, "gain", 0, "synthesize a variance plane at this gain (e-/ADU), if the frame has none")
	flag.Float64Var(&fReadNoise, "readnoise", 10, "read noise (ADU) for synthesized variance")
	flag.IntVar(&fVerbosity, "v", 0, "verbosity")
	flag.Parse()

	log.Printf("Starting\n")
}

// A RunConfig is a measurement config plus the source list and run options.
type RunConfig struct {
	Measure adamom.Config
	Sources []Source
}

type Source struct {
	X, Y     float64
	Negative bool
}

func loadRunConfig(filename string) (RunConfig, error) {
	rc := RunConfig{Measure: adamom.NewConfig()}
	contents, err := ioutil.ReadFile(filename)
	if err != nil {
		return rc, fmt.Errorf("config read %s: %v", filename, err)
	}
	err = yaml.Unmarshal(contents, &rc)
	return rc, err
}

func main() {
	rc := RunConfig{Measure: adamom.NewConfig()}
	var fr *frame.Frame

	for _, arg := range flag.Args() {
		switch strings.ToLower(filepath.Ext(arg)) {
		case ".yaml":
			loaded, err := loadRunConfig(arg)
			if err != nil {
				log.Fatalf("loading %s: %v\n", arg, err)
			}
			rc = loaded
			log.Printf("Loaded run configuration from %s\n", arg)
		default:
			loaded, err := frame.Load(arg)
			if err != nil {
				log.Fatalf("loading %s: %v\n", arg, err)
			}
			fr = loaded
			log.Printf("Loaded frame from %s: %s\n", arg, fr.Stats())
		}
	}

	rc.Measure.Verbosity = fVerbosity
	rc.Measure.DoMeasurePsf = false // the CLI has no PSF model to consult

	if fSelfTest {
		fr = selfTestFrame(&rc)
	}
	if fr == nil {
		log.Fatalf("no frame to measure (give an image file, or -selftest)\n")
	}
	if len(rc.Sources) == 0 {
		log.Fatalf("no sources to measure (list them in the run config yaml)\n")
	}

	if !fr.HasVariance() && fGain > 0 {
		fr.SynthesizeVariance(fGain, fReadNoise)
		log.Printf("Synthesized variance plane at gain %.2f\n", fGain)
	}

	recs := measureAll(rc, fr)

	writeCatalog(rc, recs)
	logSummary(rc, recs)

	if fOverlay != "" {
		schema := adamom.NewSchema()
		key := adamom.AddFields(schema, "shape", rc.Measure.DoMeasurePsf)
		ov := render.NewOverlay(fr)
		for _, rec := range recs {
			ov.Add(key.Get(rec))
		}
		if err := ov.WritePNG("starmeas", fOverlay); err != nil {
			log.Fatalf("overlay %s: %v\n", fOverlay, err)
		}
		log.Printf("Overlay written to '%s'\n", fOverlay)
	}
}

type measureJob struct {
	Idx int
	Src Source
	Rec *adamom.Record
}

// measureAll runs one Algorithm per worker over the source list. The
// frame is shared read-only, so the workers don't need any locking.
func measureAll(rc RunConfig, fr *frame.Frame) []*adamom.Record {
	var wg sync.WaitGroup
	jobsChan := make(chan measureJob, len(rc.Sources))
	recs := make([]*adamom.Record, len(rc.Sources))

	for i := 0; i < fWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			schema := adamom.NewSchema()
			provider := &jobCentroids{}
			alg := adamom.NewAlgorithm(rc.Measure, "shape", schema, provider, nil)
			for job := range jobsChan {
				provider.x, provider.y = job.Src.X, job.Src.Y
				if err := alg.Measure(fr, job.Rec); err != nil {
					log.Fatalf("measuring source %d at (%.1f,%.1f): %v\n", job.Idx, job.Src.X, job.Src.Y, err)
				}
			}
		}()
	}

	for i, src := range rc.Sources {
		rec := adamom.NewRecord()
		if src.Negative {
			rec.SetFlag(adamom.NegativeField, true)
		}
		recs[i] = rec
		jobsChan <- measureJob{i, src, rec}
	}
	close(jobsChan)
	wg.Wait()

	return recs
}

type jobCentroids struct {
	x, y float64
}

func (c *jobCentroids)Centroid(*adamom.Record) (float64, float64, error) { return c.x, c.y, nil }

func writeCatalog(rc RunConfig, recs []*adamom.Record) {
	out := os.Stdout
	if fOutputFilename != "" {
		f, err := os.Create(fOutputFilename)
		if err != nil {
			log.Fatalf("open+w '%s': %v\n", fOutputFilename, err)
		}
		defer f.Close()
		out = f
	}

	schema := adamom.NewSchema()
	key := adamom.AddFields(schema, "shape", rc.Measure.DoMeasurePsf)

	fmt.Fprintf(out, "id,x,y,xx,yy,xy,instFlux,instFluxErr,flags\n")
	for i, rec := range recs {
		res := key.Get(rec)
		fmt.Fprintf(out, "%d,%.3f,%.3f,%.4f,%.4f,%.4f,%.2f,%.2f,%s\n",
			i, res.X, res.Y, res.XX, res.YY, res.XY, res.InstFlux, res.InstFluxErr,
			res.Flags)
	}
}

// logSummary prints a histogram of instrumental magnitudes for the
// clean measurements, plus the failure tally.
func logSummary(rc RunConfig, recs []*adamom.Record) {
	schema := adamom.NewSchema()
	key := adamom.AddFields(schema, "shape", rc.Measure.DoMeasurePsf)

	hist := histogram.Histogram{NumBuckets: 30, ValMin: -20, ValMax: 10}
	nFailed := 0
	for _, rec := range recs {
		res := key.Get(rec)
		if res.Flags.Has(adamom.FlagFailure) {
			nFailed++
			continue
		}
		if res.InstFlux > 0 {
			instMag := -2.5 * math.Log10(res.InstFlux)
			hist.Add(histogram.ScalarVal(int(instMag)))
		}
	}

	log.Printf("Measured %d sources, %d failed\n", len(recs), nFailed)
	log.Printf("Instrumental magnitudes: %v\n", hist)
}

// selfTestFrame builds a synthetic field with a diagonal ramp of
// Gaussian sources, and rewrites the source list to match.
func selfTestFrame(rc *RunConfig) *frame.Frame {
	const size = 512
	fr := frame.New(size, size)
	fr.FillVariance(1.0)

	rc.Sources = rc.Sources[:0]
	amp := 10000.0
	for i := 0; i < 8; i++ {
		cx := float64(60 + i*56)
		cy := float64(60 + i*56)
		sigma := 1.0 + 0.5*float64(i)
		if err := fr.AddGaussian(cx, cy, amp, sigma*sigma, 0, sigma*sigma); err != nil {
			log.Fatalf("selftest injection: %v\n", err)
		}
		rc.Sources = append(rc.Sources, Source{X: cx, Y: cy})
		amp *= 0.6
	}

	log.Printf("Selftest frame: %s\n", fr.Stats())
	return fr
}
