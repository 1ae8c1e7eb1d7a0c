package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the sample driver's on-disk configuration, loaded the same way
// the teacher's SOCKS5 front-end loads its own config.yaml.
type Config struct {
	Mobile       bool   `yaml:"mobile"`
	DeviceIDFile string `yaml:"device_id_file"`
}

func loadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{DeviceIDFile: ".device.id"}, nil
		}
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.DeviceIDFile == "" {
		c.DeviceIDFile = ".device.id"
	}
	return &c, nil
}
