package config

import (
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	once     sync.Once
	instance *Config
)

// ComponentConfig содержит базовые сетевые настройки для запуска сервиса
type ComponentConfig struct {
	Protocol string `yaml:"protocol"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Debug    bool   `yaml:"debug"`
}

// LibraryConfig указывает на каталог библиотеки Calibre
type LibraryConfig struct {
	Path      string `yaml:"path"`
	CacheSize int    `yaml:"cache_size"`
}

// SearchConfig настройки поиска
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
}

// CLIConfig настройки для CLI (не сервис)
type CLIConfig struct {
	Debug bool `yaml:"debug"`
}

// ScanConfig настройки для сканера библиотеки (shelfd-scan)
type ScanConfig struct {
	Threads        int    `yaml:"threads"`
	ReportPath     string `yaml:"report_path"`
	LogPath        string `yaml:"log_path"`
	PushgatewayURL string `yaml:"pushgateway_url"`
}

// RateLimitConfig лимит запросов на весь сервер
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Config корень дерева конфигурации, строго соответствующий shelfd.yaml
type Config struct {
	Server    ComponentConfig `yaml:"server"`
	Library   LibraryConfig   `yaml:"library"`
	Search    SearchConfig    `yaml:"search"`
	CLI       CLIConfig       `yaml:"cli"`
	Scan      ScanConfig      `yaml:"scan"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Get возвращает инициализированный объект конфигурации (Singleton)
func Get() *Config {
	once.Do(func() {
		path := os.Getenv("SHELFD_CONFIG")
		if path == "" {
			path = "shelfd.yaml"
		}

		f, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("[CONFIG ERROR] Could not read %s: %v", path, err)
		}

		instance = &Config{}
		if err := yaml.Unmarshal(f, instance); err != nil {
			log.Fatalf("[CONFIG ERROR] Failed to parse YAML: %v", err)
		}
		instance.applyDefaults()
	})
	return instance
}

func (c *Config) applyDefaults() {
	if c.Library.CacheSize <= 0 {
		c.Library.CacheSize = 5
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Scan.Threads <= 0 {
		c.Scan.Threads = 4
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = 50
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 100
	}
}

// Address возвращает строку host:port
func (c ComponentConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FullURL возвращает строку protocol://host:port (удобно для HTTP/URL)
func (c ComponentConfig) FullURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}
