package linestream

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the file form of the framer options.
//
//	charset = "ISO-8859-1"
//	max_line_length = 8192
//	read_timeout = "30s"
//	write_timeout = "10s"
//	trace = true
type Config struct {
	Charset       string `toml:"charset"`
	MaxLineLength int    `toml:"max_line_length"`
	ReadTimeout   string `toml:"read_timeout"`
	WriteTimeout  string `toml:"write_timeout"`
	Trace         bool   `toml:"trace"`
}

// LoadConfig reads a TOML config file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "linestream: load config %s", path)
	}
	return cfg, nil
}

// GetReadTimeout parses the read timeout. Empty means no timeout.
func (c Config) GetReadTimeout() (time.Duration, error) {
	return parseTimeout("read_timeout", c.ReadTimeout)
}

// GetWriteTimeout parses the write timeout. Empty means no timeout.
func (c Config) GetWriteTimeout() (time.Duration, error) {
	return parseTimeout("write_timeout", c.WriteTimeout)
}

func parseTimeout(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "linestream: invalid %s", key)
	}
	return d, nil
}

// Options converts the config into framer options. When Trace is set,
// transcript records go to logger at debug level.
func (c Config) Options(logger Logger) ([]Option, error) {
	codec, err := CodecFor(c.Charset)
	if err != nil {
		return nil, err
	}

	readTimeout, err := c.GetReadTimeout()
	if err != nil {
		return nil, err
	}

	writeTimeout, err := c.GetWriteTimeout()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = defaultLogger()
	}

	opts := []Option{
		CodecOption(codec),
		LoggerOption(logger),
		MaxLineLengthOption(c.MaxLineLength),
		ReadTimeoutOption(readTimeout),
		WriteTimeoutOption(writeTimeout),
	}
	if c.Trace {
		opts = append(opts, TraceOption(LogTracer(logger)))
	}
	return opts, nil
}
