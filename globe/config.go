package globe

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"globe/cache"
	"globe/camera"
	"globe/fetch"
	"globe/tile"
)

//DefaultTileURL Mapbox Streets v8 vector tiles
const DefaultTileURL = "https://api.mapbox.com/v4/mapbox.mapbox-streets-v8/{z}/{x}/{y}.mvt"

//Config everything an Engine needs besides its collaborators.
type Config struct {
	TileURL string
	Token   string
	//MBTiles when set, tiles are read from this local file instead of TileURL
	MBTiles string

	Workers    int
	Throttle   time.Duration
	RetryDelay time.Duration
	Timeout    time.Duration
	OnError    fetch.ErrorSink

	CacheSize int

	Viewport camera.Viewport
	Center   tile.LngLat
	Zoom     float64
}

//SetDefaults registers the engine keys and their defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tiles.url", DefaultTileURL)
	v.SetDefault("tiles.token", "")
	v.SetDefault("tiles.mbtiles", "")
	v.SetDefault("fetch.workers", fetch.DefaultWorkers)
	v.SetDefault("fetch.throttle", fetch.DefaultThrottle)
	v.SetDefault("fetch.retrydelay", fetch.DefaultRetryDelay)
	v.SetDefault("fetch.timeout", 0)
	v.SetDefault("cache.size", cache.DefaultSize)
	v.SetDefault("view.width", 800)
	v.SetDefault("view.height", 600)
	v.SetDefault("view.pixelratio", 1.0)
	v.SetDefault("camera.lng", 0.0)
	v.SetDefault("camera.lat", 0.0)
	v.SetDefault("camera.zoom", 0.0)
}

//DefaultConfig the configuration an empty config file yields
func DefaultConfig() Config {
	v := viper.New()
	SetDefaults(v)
	return ConfigFromViper(v)
}

//ConfigFromViper maps the tiles, fetch, cache, view and camera keys.
func ConfigFromViper(v *viper.Viper) Config {
	return Config{
		TileURL:    v.GetString("tiles.url"),
		Token:      v.GetString("tiles.token"),
		MBTiles:    v.GetString("tiles.mbtiles"),
		Workers:    v.GetInt("fetch.workers"),
		Throttle:   v.GetDuration("fetch.throttle"),
		RetryDelay: v.GetDuration("fetch.retrydelay"),
		Timeout:    v.GetDuration("fetch.timeout"),
		CacheSize:  v.GetInt("cache.size"),
		Viewport: camera.Viewport{
			Width:      v.GetFloat64("view.width"),
			Height:     v.GetFloat64("view.height"),
			PixelRatio: v.GetFloat64("view.pixelratio"),
		},
		Center: tile.LngLat{Lng: v.GetFloat64("camera.lng"), Lat: v.GetFloat64("camera.lat")},
		Zoom:   v.GetFloat64("camera.zoom"),
	}
}

//Validate checks the values New cannot work around.
func (c Config) Validate() error {
	return c.validate(true)
}

// validate skips the tile location check when the caller supplies its own
// source.
func (c Config) validate(needSource bool) error {
	var errs []error
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", c.CacheSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("fetch.workers must not be negative, got %d", c.Workers))
	}
	if needSource && c.MBTiles == "" && c.TileURL == "" {
		errs = append(errs, errors.New("one of tiles.url or tiles.mbtiles is required"))
	}
	if !c.Viewport.Valid() {
		errs = append(errs, fmt.Errorf("invalid viewport %vx%v@%v", c.Viewport.Width, c.Viewport.Height, c.Viewport.PixelRatio))
	}
	return errors.Join(errs...)
}

func (c Config) fetchOptions() fetch.Options {
	o := fetch.Options{
		Workers:    c.Workers,
		Throttle:   c.Throttle,
		RetryDelay: c.RetryDelay,
		Timeout:    c.Timeout,
		OnError:    c.OnError,
	}
	// a zero in the config file means off; fetch treats zero as "use default"
	if o.Throttle == 0 {
		o.Throttle = -1
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = -1
	}
	return o
}
