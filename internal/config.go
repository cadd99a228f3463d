package internal

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/crypto/bcrypt"
)

// Prepared-frame tracking sources.
const (
	PreparedSourceDir = "dir"
	PreparedSourceDB  = "db"
)

// Config represents the application configuration shared by every agent.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Paths    PathsConfig       `yaml:"paths"`
	Curation CurationConfig    `yaml:"curation"`
	Video    VideoConfig       `yaml:"video"`
	Index    IndexConfig       `yaml:"index"`
	Watch    WatchConfig       `yaml:"watch"`
	Upload   UploadConfig      `yaml:"upload"`
	Archive  ArchiveConfig     `yaml:"archive"`
	Capture  CaptureConfig     `yaml:"capture"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Paths, &c.Curation, &c.Video, &c.Index,
		&c.Watch, &c.Upload, &c.Archive, &c.Capture,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// PathsConfig locates the frame directories and the sensor log.
type PathsConfig struct {
	Frames    string `yaml:"frames"`
	Prepared  string `yaml:"prepared"`
	Rejected  string `yaml:"rejected"`
	SensorLog string `yaml:"sensor_log"`
}

// Validate validates the paths configuration.
func (c *PathsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Frames, validation.Required),
		validation.Field(&c.Prepared, validation.Required),
		validation.Field(&c.Rejected, validation.Required),
		validation.Field(&c.SensorLog, validation.Required),
	)
}

// ROIConfig is a pixel rectangle; Right and Bottom are exclusive.
type ROIConfig struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Right  int `yaml:"right"`
	Bottom int `yaml:"bottom"`
}

// Rect returns the region as an image.Rectangle.
func (c ROIConfig) Rect() image.Rectangle {
	return image.Rect(c.Left, c.Top, c.Right, c.Bottom)
}

// CurationConfig holds the classifier and transformer constants.
type CurationConfig struct {
	ROI               ROIConfig `yaml:"roi"`
	VarianceThreshold float64   `yaml:"variance_threshold"`
	Contrast          float64   `yaml:"contrast"`
	GreenScale        float64   `yaml:"green_scale"`
	JPEGQuality       int       `yaml:"jpeg_quality"`
	RetentionDays     int       `yaml:"retention_days"`
}

// Validate validates the curation configuration.
func (c *CurationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.VarianceThreshold, validation.Min(0.0)),
		validation.Field(&c.Contrast, validation.Required, validation.Min(0.0)),
		validation.Field(&c.GreenScale, validation.Required, validation.Min(0.0)),
		validation.Field(&c.JPEGQuality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.RetentionDays, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.ROI.Rect().Empty() {
		return fmt.Errorf("curation: roi %v is empty", c.ROI.Rect())
	}
	return nil
}

// VideoConfig holds encoder settings.
type VideoConfig struct {
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FrameRate   int           `yaml:"frame_rate"`
	ShortEdge   int           `yaml:"short_edge"`
	Timeout     time.Duration `yaml:"timeout"`
	StagingRoot string        `yaml:"staging_root"`
}

// Validate validates the video configuration.
func (c *VideoConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FFmpegPath, validation.Required),
		validation.Field(&c.FrameRate, validation.Required, validation.Min(1)),
		validation.Field(&c.ShortEdge, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// IndexConfig holds the SQLite index location and the prepared-frame
// tracking source.
type IndexConfig struct {
	Path           string `yaml:"path"`
	PreparedSource string `yaml:"prepared_source"`
}

// Validate validates the index configuration.
func (c *IndexConfig) Validate() error {
	if c.PreparedSource == "" {
		c.PreparedSource = PreparedSourceDir
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.PreparedSource, validation.In(PreparedSourceDir, PreparedSourceDB)),
	)
}

// WatchConfig configures prepare --watch.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Required, validation.Min(100*time.Millisecond)),
	)
}

// UploadConfig configures delivery to the archive server. An empty URL
// disables HTTP uploads.
type UploadConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	S3       S3Config      `yaml:"s3"`
}

// Enabled reports whether any upload sink is configured.
func (c *UploadConfig) Enabled() bool {
	return c.URL != "" || c.S3.Enabled
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.URL, is.URL),
		validation.Field(&c.Password, validation.When(c.URL != "", validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	return c.S3.Validate()
}

// S3Config configures the optional object storage mirror.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Bucket, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Endpoint, is.URL),
	)
}

// ArchiveConfig configures the archive server.
type ArchiveConfig struct {
	Root           string        `yaml:"root"`
	PasswordHash   string        `yaml:"password_hash"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	EventThrottle  time.Duration `yaml:"event_throttle"`
	SensorLogName  string        `yaml:"sensor_log_name"`
}

// Validate validates the archive configuration. The password hash is
// optional here so agents can share one file; serve requires it.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.PasswordHash, validation.By(bcryptHash)),
		validation.Field(&c.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.SensorLogName, validation.Required),
	)
}

func bcryptHash(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(s)); err != nil {
		return fmt.Errorf("not a bcrypt hash")
	}
	return nil
}

// CaptureConfig configures the capture agent's devices.
type CaptureConfig struct {
	HueURL          string        `yaml:"hue_url"`
	HueUsername     string        `yaml:"hue_username"`
	CameraURL       string        `yaml:"camera_url"`
	Resolution      int           `yaml:"resolution"`
	LightSensor     int           `yaml:"light_sensor"`
	TempSensor      int           `yaml:"temp_sensor"`
	ClampLamp       int           `yaml:"clamp_lamp"`
	PlantLamp       int           `yaml:"plant_lamp"`
	PlantBrightness int           `yaml:"plant_brightness"`
	PlantColorTemp  int           `yaml:"plant_color_temp"`
	FadeDelay       time.Duration `yaml:"fade_delay"`
	SettleDelay     time.Duration `yaml:"settle_delay"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Validate validates the capture configuration. Device URLs are checked
// when set; capture itself requires them.
func (c *CaptureConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HueURL, is.URL),
		validation.Field(&c.CameraURL, is.URL),
		validation.Field(&c.Resolution, validation.Min(0), validation.Max(6)),
		validation.Field(&c.PlantBrightness, validation.Min(1), validation.Max(254)),
		validation.Field(&c.PlantColorTemp, validation.Min(153), validation.Max(500)),
	)
}

// NewDefaultConfig returns a new Config with the values the rig ran with.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Paths: PathsConfig{
			Frames:    "./frames",
			Prepared:  "./frames/prepared",
			Rejected:  "./frames/archive",
			SensorLog: "./sensor_log.json",
		},
		Curation: CurationConfig{
			ROI:               ROIConfig{Left: 200, Top: 0, Right: 1280, Bottom: 880},
			VarianceThreshold: 2000,
			Contrast:          1.05,
			GreenScale:        0.96,
			JPEGQuality:       75,
			RetentionDays:     7,
		},
		Video: VideoConfig{
			FFmpegPath: "ffmpeg",
			FrameRate:  20,
			ShortEdge:  720,
		},
		Index: IndexConfig{
			Path:           "./pothos.db",
			PreparedSource: PreparedSourceDir,
		},
		Watch: WatchConfig{
			Debounce: 5 * time.Second,
		},
		Upload: UploadConfig{
			Timeout: 5 * time.Minute,
		},
		Archive: ArchiveConfig{
			Root:           "./uploads",
			MaxUploadBytes: 32 << 20,
			EventThrottle:  2 * time.Second,
			SensorLogName:  "sensor_log.json",
		},
		Capture: CaptureConfig{
			Resolution:      3,
			LightSensor:     14,
			TempSensor:      15,
			ClampLamp:       4,
			PlantLamp:       5,
			PlantBrightness: 250,
			PlantColorTemp:  300,
			FadeDelay:       time.Second,
			SettleDelay:     2 * time.Second,
			Timeout:         30 * time.Second,
		},
	}
}
