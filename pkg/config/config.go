// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads the optional sondestat YAML configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats accepted by output.format
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// Defaults applied to unset fields
const (
	DefaultBaud        = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultMaxAge      = 256
	DefaultRateHz      = 10.0
)

type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Decoder    DecoderConfig    `yaml:"decoder"`
	Output     OutputConfig     `yaml:"output"`
	Simulate   SimulateConfig   `yaml:"simulate"`
}

type ConnectionConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	URL         string        `yaml:"url"`
	Username    string        `yaml:"username"`
	NoSSLVerify bool          `yaml:"no_ssl_verify"`
	File        string        `yaml:"file"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type DecoderConfig struct {
	MaxAge int `yaml:"max_age"`
}

type OutputConfig struct {
	Format      string `yaml:"format"`
	ShowRejects bool   `yaml:"show_rejects"`
}

type SimulateConfig struct {
	RateHz       float64 `yaml:"rate_hz"`
	CorruptEvery int     `yaml:"corrupt_every"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	var cfg Config
	if err := cfg.normalize(); err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate applies defaults and checks a configuration after flags have
// been merged into it
func (c *Config) Validate() error {
	return c.normalize()
}

// normalize applies defaults, then validates
func (c *Config) normalize() error {
	conn := &c.Connection
	sources := 0
	for _, s := range []string{conn.Port, conn.URL, conn.File} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("connection: only one of port, url and file may be set")
	}

	if conn.Baud == 0 {
		conn.Baud = DefaultBaud
	}
	if conn.Baud < 0 {
		return fmt.Errorf("connection.baud must be > 0")
	}
	if conn.ReadTimeout == 0 {
		conn.ReadTimeout = DefaultReadTimeout
	}
	if conn.ReadTimeout < 0 {
		return fmt.Errorf("connection.read_timeout must be > 0")
	}
	if conn.Username != "" && conn.URL == "" && (conn.Port != "" || conn.File != "") {
		return fmt.Errorf("connection.username is only used with connection.url")
	}

	if c.Decoder.MaxAge == 0 {
		c.Decoder.MaxAge = DefaultMaxAge
	}
	if c.Decoder.MaxAge < 0 {
		return fmt.Errorf("decoder.max_age must be > 0")
	}

	switch c.Output.Format {
	case "":
		c.Output.Format = FormatText
	case FormatText, FormatJSON, FormatCBOR:
	default:
		return fmt.Errorf("output.format must be one of text, json, cbor (got %q)", c.Output.Format)
	}

	if c.Simulate.RateHz == 0 {
		c.Simulate.RateHz = DefaultRateHz
	}
	if c.Simulate.RateHz < 0 {
		return fmt.Errorf("simulate.rate_hz must be > 0")
	}
	if c.Simulate.CorruptEvery < 0 {
		return fmt.Errorf("simulate.corrupt_every must be >= 0")
	}

	return nil
}
