package state

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/tsclock/tsclock/clock"
	"github.com/tsclock/tsclock/hardware/lcd"
	"github.com/tsclock/tsclock/helpers"
	"github.com/tsclock/tsclock/log2"
	tele_config "github.com/tsclock/tsclock/tele/config"
)

const (
	DisplayDriverGPIO = "gpio"
	DisplayDriverI2C  = "i2c"
	DisplayDriverMock = "mock"

	BacklightSourceNone  = "none"
	BacklightSourceOn    = "on"
	BacklightSourceGPIO  = "gpio"
	BacklightSourceInput = "input"

	DefaultWidth = 20
	DefaultRows  = 4
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	Display struct { //nolint:maligned
		Driver   string     `hcl:"driver"`
		Codepage string     `hcl:"codepage"`
		Width    int        `hcl:"width"`
		Rows     int        `hcl:"rows"`
		DwellMs  int        `hcl:"dwell_ms"`
		Page1    bool       `hcl:"page1"`
		PinChip  string     `hcl:"pin_chip"`
		Pinmap   lcd.PinMap `hcl:"pinmap"`
		I2CBus   string     `hcl:"i2c_bus"`
		I2CAddr  int        `hcl:"i2c_addr"`
	} `hcl:"display"`

	Backlight struct {
		Source    string `hcl:"source"`
		PinChip   string `hcl:"pin_chip"`
		Pin       int    `hcl:"pin"`
		ActiveLow bool   `hcl:"active_low"`
		Device    string `hcl:"device"`
		Key       int    `hcl:"key"`
		Switch    bool   `hcl:"switch"` // EV_SW instead of EV_KEY
	} `hcl:"backlight"`

	Log struct {
		Level      string `hcl:"level"`
		File       string `hcl:"file"`
		MaxSizeMB  int    `hcl:"max_size_mb"`
		MaxBackups int    `hcl:"max_backups"`
		Compress   bool   `hcl:"compress"`
	} `hcl:"log"`

	Metrics struct {
		Listen string `hcl:"listen"`
	} `hcl:"metrics"`

	Mqtt tele_config.Config `hcl:"mqtt"`
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) Dwell() time.Duration {
	return helpers.IntMillisecondDefault(c.Display.DwellMs, clock.DefaultDwell)
}

func (c *Config) LogLevel() log2.Level {
	level, _ := log2.ParseLevel(c.Log.Level)
	return level
}

// applyDefaults fills zero values, env secrets override file.
func (c *Config) applyDefaults() {
	if c.Display.Driver == "" {
		c.Display.Driver = DisplayDriverI2C
	}
	if c.Display.Width == 0 {
		c.Display.Width = DefaultWidth
	}
	if c.Display.Rows == 0 {
		c.Display.Rows = DefaultRows
	}
	if c.Display.I2CAddr == 0 {
		c.Display.I2CAddr = lcd.DefaultI2CAddr
	}
	if c.Backlight.Source == "" {
		c.Backlight.Source = BacklightSourceOn
	}
	if c.Mqtt.PasswordEnv != "" {
		if s, ok := os.LookupEnv(c.Mqtt.PasswordEnv); ok {
			c.Mqtt.Password = s
		}
	}
}

func (c *Config) Validate() error {
	errs := make([]error, 0, 8)
	switch c.Display.Driver {
	case DisplayDriverGPIO:
		if c.Display.PinChip == "" {
			errs = append(errs, errors.NotValidf("config: display.pin_chip=empty with driver=gpio"))
		}
	case DisplayDriverI2C, DisplayDriverMock:
	default:
		errs = append(errs, errors.NotValidf("config: display.driver=%s (expected gpio|i2c|mock)", c.Display.Driver))
	}
	if c.Display.Width < 1 || c.Display.Width > 40 || c.Display.Rows < 1 || c.Display.Rows > 4 {
		errs = append(errs, errors.NotValidf("config: display size=%dx%d", c.Display.Width, c.Display.Rows))
	}
	if c.Display.DwellMs < 0 {
		errs = append(errs, errors.NotValidf("config: display.dwell_ms=%d", c.Display.DwellMs))
	}
	if c.Display.I2CAddr < 0 || c.Display.I2CAddr > 0x7f {
		errs = append(errs, errors.NotValidf("config: display.i2c_addr=%#x", c.Display.I2CAddr))
	}

	switch c.Backlight.Source {
	case BacklightSourceNone, BacklightSourceOn:
	case BacklightSourceGPIO:
		if c.Backlight.PinChip == "" || c.Backlight.Pin < 0 {
			errs = append(errs, errors.NotValidf("config: backlight gpio pin_chip=%s pin=%d", c.Backlight.PinChip, c.Backlight.Pin))
		}
	case BacklightSourceInput:
		if c.Backlight.Device == "" || c.Backlight.Key <= 0 {
			errs = append(errs, errors.NotValidf("config: backlight input device=%s key=%d", c.Backlight.Device, c.Backlight.Key))
		}
	default:
		errs = append(errs, errors.NotValidf("config: backlight.source=%s (expected none|on|gpio|input)", c.Backlight.Source))
	}

	if _, err := log2.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, errors.Annotate(err, "config: log.level"))
	}

	if c.Mqtt.Transport != tele_config.TransportNone {
		if c.Mqtt.Broker == "" {
			errs = append(errs, errors.NotValidf("config: mqtt.broker=empty"))
		}
		if c.Mqtt.PasswordEnv != "" && c.Mqtt.Password == "" {
			errs = append(errs, errors.NotFoundf("config: mqtt.password_env=%s variable", c.Mqtt.PasswordEnv))
		}
	}
	if _, err := c.Mqtt.ResolveTopics(); err != nil {
		errs = append(errs, errors.Annotate(err, "config"))
	}
	return helpers.FoldErrors(errs)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		// content may contain secrets, don't log it
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig merges sources in order, later values override.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		return nil, errors.NotValidf("code error ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: strings.TrimSpace(name)}, &errs)
	}
	if len(errs) != 0 {
		return c, helpers.FoldErrors(errs)
	}
	c.applyDefaults()
	return c, c.Validate()
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}
