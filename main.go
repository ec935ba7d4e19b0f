package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"time"

	"github.com/shiena/ansicolor"
	log "github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/spf13/viper"

	"globe/fetch"
	"globe/globe"
	"globe/render"
	"globe/tile"
)

// flag
var (
	hf bool
	cf string
)

func init() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&cf, "c", "conf.toml", "set config `file`")
	flag.Usage = usage
	initLog(log.DebugLevel)
}

func usage() {
	fmt.Fprintf(os.Stderr, `globe version: globe/%s
Usage: globe [-h] [-c filename]
`, version)
	flag.PrintDefaults()
}

const version = "v0.1.0"

// initLog nested text on a color-capable stdout
func initLog(lvl log.Level) {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(ansicolor.NewAnsiColorWriter(os.Stdout))
	log.SetLevel(lvl)
}

// initConf registers every default first, then lays the config file and the
// environment over them. A missing or broken file leaves the defaults in place.
func initConf(cfgFile string) globe.Config {
	v := viper.GetViper()
	v.SetDefault("app.version", version)
	v.SetDefault("app.title", "Vector Globe")
	v.SetDefault("log.level", "debug")
	v.SetDefault("run.frames", 600)
	v.SetDefault("run.fps", 60)
	v.SetDefault("run.panx", 0.0)
	v.SetDefault("run.pany", 0.0)
	v.SetDefault("run.zoomrate", 0.0)
	globe.SetDefaults(v)

	v.SetConfigType("toml")
	v.SetConfigFile(cfgFile)
	v.AutomaticEnv()
	switch err := v.ReadInConfig(); {
	case errors.Is(err, fs.ErrNotExist):
		log.Warnf("config file(%s) not exist, using defaults", cfgFile)
	case err != nil:
		log.Warnf("read config file(%s) error, details: %s", cfgFile, err)
	}

	if lvl, err := log.ParseLevel(v.GetString("log.level")); err == nil {
		log.SetLevel(lvl)
	}
	return globe.ConfigFromViper(v)
}

// useMBTilesCenter starts the camera at the file's advertised center when
// the configured camera sits at the default 0,0.
func useMBTilesCenter(cfg *globe.Config) {
	if cfg.MBTiles == "" || cfg.Center != (tile.LngLat{}) {
		return
	}
	s, err := fetch.OpenMBTiles(cfg.MBTiles)
	if err != nil {
		return
	}
	defer s.Close()
	meta, err := s.Metadata()
	if err != nil {
		log.Warnf("read %s metadata error ~ %s", cfg.MBTiles, err)
		return
	}
	var c tile.LngLat
	var z float64
	if n, _ := fmt.Sscanf(meta["center"], "%f,%f,%f", &c.Lng, &c.Lat, &z); n >= 2 {
		cfg.Center = c
		if n == 3 && cfg.Zoom == 0 {
			cfg.Zoom = z
		}
		log.Infof("camera starts at %s center %v ~", meta["name"], cfg.Center)
	}
}

func main() {
	flag.Parse()
	if hf {
		flag.Usage()
		return
	}

	if cf == "" {
		cf = "conf.toml"
	}
	start := time.Now()
	cfg := initConf(cf)
	useMBTilesCenter(&cfg)

	rec := &render.Recorder{}
	engine, err := globe.New(cfg, rec, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer engine.Close()

	flight := NewFlight(engine, rec)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		flight.abortFun()
	}()

	if err := flight.Run(); err != nil {
		engine.Close()
		log.Fatalf("flight %s failed ~ %s", flight.ID, err)
	}
	secs := time.Since(start).Seconds()
	log.Printf("\n%.3fs finished...", secs)
}
