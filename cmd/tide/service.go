package tide

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Fetcher returns the latest tide height in feet.
type Fetcher interface {
	Fetch(ctx context.Context) (float64, error)
}

var (
	// ErrConnectivity covers dial failures, timeouts and non-200 responses.
	ErrConnectivity = errors.New("tide: source unreachable")
	// ErrParse means the response arrived but carried no usable height.
	ErrParse = errors.New("tide: no height in response")
)

// Config describes the NOAA CO-OPS datagetter request.
type Config struct {
	BaseURL  string        `mapstructure:"base_url" yaml:"base_url"`
	Station  string        `mapstructure:"station" yaml:"station"`
	Product  string        `mapstructure:"product" yaml:"product"`
	Datum    string        `mapstructure:"datum" yaml:"datum"`
	Units    string        `mapstructure:"units" yaml:"units"`
	TimeZone string        `mapstructure:"time_zone" yaml:"time_zone"`
	Format   string        `mapstructure:"format" yaml:"format"`
	Marker   string        `mapstructure:"marker" yaml:"marker"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:  "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter",
		Station:  "9410170",
		Product:  "water_level",
		Datum:    "MLLW",
		Units:    "english",
		TimeZone: "gmt",
		Format:   "xml",
		Marker:   `v="`,
		Timeout:  5 * time.Second,
	}
}

// URL renders the request for the latest observation.
func (c Config) URL() string {
	q := url.Values{}
	q.Set("date", "latest")
	q.Set("station", c.Station)
	q.Set("product", c.Product)
	q.Set("datum", c.Datum)
	q.Set("units", c.Units)
	q.Set("time_zone", c.TimeZone)
	q.Set("format", c.Format)
	return c.BaseURL + "?" + q.Encode()
}

var _ Fetcher = (*noaaService)(nil)

type noaaService struct {
	cfg    Config
	client *http.Client
}

// NewService returns a Fetcher for the configured NOAA station.
func NewService(cfg Config) Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Marker == "" {
		cfg.Marker = DefaultConfig().Marker
	}
	return &noaaService{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Fetch performs one bounded GET and extracts the first value after the marker.
func (s *noaaService) Fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status code: %s", ErrConnectivity, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	return ParseHeight(string(body), s.cfg.Marker)
}

// ParseHeight locates marker in body and parses the numeric token that follows it.
func ParseHeight(body, marker string) (float64, error) {
	i := strings.Index(body, marker)
	if i < 0 {
		return 0, fmt.Errorf("%w: marker %q not found", ErrParse, marker)
	}
	rest := body[i+len(marker):]
	end := 0
	for end < len(rest) && isNumeric(rest[end]) {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("%w: empty value after marker", ErrParse)
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return v, nil
}

func isNumeric(ch byte) bool {
	return (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
}
