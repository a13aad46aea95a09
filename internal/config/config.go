package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	JWTSecret string

	// LocalDBPath is the SQLite file backing the offline-operation log
	// and last-known sync status.
	LocalDBPath string

	// SyncBridgeURL points at the calendar/health bridge service. Empty
	// means external sync is disabled.
	SyncBridgeURL string
}

// fileConfig mirrors Config for the optional YAML overlay. Only fields set
// in the file override what the environment provided.
type fileConfig struct {
	Addr          string `yaml:"addr"`
	DBHost        string `yaml:"db_host"`
	DBPort        int    `yaml:"db_port"`
	DBUser        string `yaml:"db_user"`
	DBPassword    string `yaml:"db_password"`
	DBName        string `yaml:"db_name"`
	JWTSecret     string `yaml:"jwt_secret"`
	LocalDBPath   string `yaml:"local_db_path"`
	SyncBridgeURL string `yaml:"sync_bridge_url"`
}

func Load() *Config {
	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		port = 5432
	}

	addr := os.Getenv("KAIROS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	localPath := os.Getenv("KAIROS_LOCAL_DB")
	if localPath == "" {
		localPath = "data/kairos-local.db"
	}

	cfg := &Config{
		Addr:          addr,
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        port,
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LocalDBPath:   localPath,
		SyncBridgeURL: os.Getenv("KAIROS_SYNC_BRIDGE"),
	}

	if path := os.Getenv("KAIROS_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("[WARN] config file %s ignored: %v", path, err)
		}
	}

	return cfg
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return err
	}

	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.DBHost != "" {
		c.DBHost = fc.DBHost
	}
	if fc.DBPort != 0 {
		c.DBPort = fc.DBPort
	}
	if fc.DBUser != "" {
		c.DBUser = fc.DBUser
	}
	if fc.DBPassword != "" {
		c.DBPassword = fc.DBPassword
	}
	if fc.DBName != "" {
		c.DBName = fc.DBName
	}
	if fc.JWTSecret != "" {
		c.JWTSecret = fc.JWTSecret
	}
	if fc.LocalDBPath != "" {
		c.LocalDBPath = fc.LocalDBPath
	}
	if fc.SyncBridgeURL != "" {
		c.SyncBridgeURL = fc.SyncBridgeURL
	}
	return nil
}

func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}
