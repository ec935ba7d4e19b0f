package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	pb "gopkg.in/cheggaaa/pb.v1"

	"globe/globe"
	"globe/render"
)

//Flight scripted camera run: every frame pans and zooms by a fixed step
//and draws through the engine.
type Flight struct {
	ID       string
	Frames   int
	FPS      int
	PanX     float64
	PanY     float64
	ZoomRate float64
	Bar      *pb.ProgressBar
	Summary  FlightSummary
	engine   *globe.Engine
	renderer *render.Recorder
	abort    chan struct{}
}

//FlightSummary peak values seen during a flight
type FlightSummary struct {
	Frames      int
	MaxVisible  int
	MaxDrawn    int
	MaxInFlight int
	MaxZoom     uint32
	Features    int
}

//NewFlight reads the run keys.
func NewFlight(e *globe.Engine, r *render.Recorder) *Flight {
	return &Flight{
		ID:       e.ID,
		Frames:   viper.GetInt("run.frames"),
		FPS:      viper.GetInt("run.fps"),
		PanX:     viper.GetFloat64("run.panx"),
		PanY:     viper.GetFloat64("run.pany"),
		ZoomRate: viper.GetFloat64("run.zoomrate"),
		engine:   e,
		renderer: r,
		abort:    make(chan struct{}, 1),
	}
}

func (f *Flight) abortFun() {
	select {
	case f.abort <- struct{}{}:
	default:
	}
}

//Run drives the frames, paced at FPS when it is positive. A renderer error
//stops the flight.
func (f *Flight) Run() error {
	if f.Bar == nil {
		f.Bar = pb.New(f.Frames).Prefix("Flight : ")
	}
	f.Bar.Start()

	var tick <-chan time.Time
	if f.FPS > 0 {
		ticker := time.NewTicker(time.Second / time.Duration(f.FPS))
		defer ticker.Stop()
		tick = ticker.C
	}
	logEvery := f.FPS
	if logEvery <= 0 {
		logEvery = 60
	}

	for i := 0; i < f.Frames; i++ {
		if f.wait(tick) {
			log.Infof("flight %s got canceled.", f.ID)
			f.Bar.FinishPrint(fmt.Sprintf("flight %s stopped at frame %d ~", f.ID, i))
			return nil
		}

		f.engine.OnPan(f.PanX, f.PanY)
		f.engine.OnZoom(f.ZoomRate)
		stats, err := f.engine.Frame()
		if err != nil {
			f.Bar.FinishPrint(fmt.Sprintf("flight %s failed at frame %d ~", f.ID, i))
			return err
		}
		f.record(stats)
		f.Bar.Increment()

		if i%logEvery == 0 {
			c := f.engine.Camera()
			log.Debugf("frame %d, center %.4f,%.4f zoom %.2f, visible %d, drawn %d, inflight %d, cached %d ~",
				i, c.Center.Lng, c.Center.Lat, c.Zoom, stats.Visible, stats.Drawn, stats.InFlight, stats.Cached)
		}
	}
	f.Bar.FinishPrint(fmt.Sprintf("flight %s finished, peak %d visible, %d in flight, zoom %d ~",
		f.ID, f.Summary.MaxVisible, f.Summary.MaxInFlight, f.Summary.MaxZoom))
	return nil
}

// wait blocks for the next tick, or only polls when unpaced; true means
// the flight was aborted.
func (f *Flight) wait(tick <-chan time.Time) bool {
	if tick == nil {
		select {
		case <-f.abort:
			return true
		default:
			return false
		}
	}
	select {
	case <-tick:
		return false
	case <-f.abort:
		return true
	}
}

func (f *Flight) record(stats globe.FrameStats) {
	s := &f.Summary
	s.Frames++
	if stats.Visible > s.MaxVisible {
		s.MaxVisible = stats.Visible
	}
	if stats.Drawn > s.MaxDrawn {
		s.MaxDrawn = stats.Drawn
	}
	if stats.InFlight > s.MaxInFlight {
		s.MaxInFlight = stats.InFlight
	}
	if stats.MaxZoom > s.MaxZoom {
		s.MaxZoom = stats.MaxZoom
	}
	s.Features += f.renderer.Features()
}
