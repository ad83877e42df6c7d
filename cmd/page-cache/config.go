package main

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     int    `yaml:"port"`
	Origin   string `yaml:"origin"`
	Provider string `yaml:"provider"`
	// DBFile is the SQLite database file for the sqlite provider.
	DBFile string      `yaml:"dbFile"`
	Redis  RedisConfig `yaml:"redis"`
	// TTL is the cache entry lifetime in seconds.
	// Omit for the default one-year ceiling; 0 disables storing.
	TTL       *int   `yaml:"ttl"`
	KeyPrefix string `yaml:"keyPrefix"`
	// Compress stores entries snappy-compressed.
	Compress bool `yaml:"compress"`
	// Exposed adds the Page-Cache response header.
	Exposed bool `yaml:"exposed"`
	// CacheControl holds directive overrides applied to every response,
	// e.g. {max_age: 60, must_revalidate: true}.
	CacheControl map[string]interface{} `yaml:"cacheControl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func getConfig(filename string) (Config, error) {
	var config Config
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = yaml.Unmarshal(configBytes, &config)
	return config, err
}
