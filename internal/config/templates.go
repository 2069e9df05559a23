package config

import (
	"bytes"
	"fmt"
	"os"

	gotoml "github.com/pelletier/go-toml/v2"
)

const templateHeader = "# feedctl configuration. Command line flags and arguments override these values.\n\n"

// DefaultFile mirrors Default() in on-disk form.
func DefaultFile() File {
	d := Default()
	return File{
		Host:           d.Feed.Host,
		Port:           d.Feed.Port,
		Output:         d.Output,
		ConnectTimeout: d.Feed.Session.ConnectTimeout.String(),
		ReadTimeout:    d.Feed.Session.ReadTimeout.String(),
		WriteTimeout:   d.Feed.Session.WriteTimeout.String(),
		ResendInterval: d.Feed.ResendInterval.String(),
		MetricsFile:    d.MetricsFile,
		LogLevel:       d.LogLevel,
	}
}

func Template() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(templateHeader)
	enc := gotoml.NewEncoder(&buf)
	if err := enc.Encode(DefaultFile()); err != nil {
		return nil, fmt.Errorf("encode config template: %w", err)
	}
	return buf.Bytes(), nil
}

func WriteTemplate(path string, overwrite bool) error {
	data, err := Template()
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
