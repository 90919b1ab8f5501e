package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Tape sink names accepted by TAPE_SINK.
const (
	SinkNone   = "none"
	SinkFile   = "file"
	SinkLog    = "log"
	SinkKafka  = "kafka"
	SinkPebble = "pebble"
)

// Config holds all runtime configuration for the matching engine.
type Config struct {
	LogLevel        string
	Symbol          string
	PriceScale      int
	QueueSize       int
	TapeSink        string
	TapeFile        string
	TapeFileMode    string
	TapeWipe        bool
	KafkaBrokers    []string
	KafkaTopic      string
	PebbleDir       string
	MetricsFile     string
	VWAPWindow      time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	priceScale, err := getInt("PRICE_SCALE", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_SCALE: %w", err)
	}
	if priceScale < 0 || priceScale > 8 {
		return nil, fmt.Errorf("invalid PRICE_SCALE: %d, must be between 0 and 8", priceScale)
	}

	queueSize, err := getInt("QUEUE_SIZE", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid QUEUE_SIZE: %w", err)
	}
	if queueSize < 1 {
		return nil, fmt.Errorf("invalid QUEUE_SIZE: %d, must be positive", queueSize)
	}

	tapeSink := strings.ToLower(getStr("TAPE_SINK", SinkFile))
	switch tapeSink {
	case SinkNone, SinkFile, SinkLog, SinkKafka, SinkPebble:
	default:
		return nil, fmt.Errorf("invalid TAPE_SINK: %q, must be one of: none, file, log, kafka, pebble", tapeSink)
	}

	tapeFileMode := strings.ToLower(getStr("TAPE_FILE_MODE", "truncate"))
	if tapeFileMode != "truncate" && tapeFileMode != "append" {
		return nil, fmt.Errorf("invalid TAPE_FILE_MODE: %q, must be one of: truncate, append", tapeFileMode)
	}

	tapeWipe, err := getBool("TAPE_WIPE", false)
	if err != nil {
		return nil, fmt.Errorf("invalid TAPE_WIPE: %w", err)
	}

	kafkaBrokers := getList("KAFKA_BROKERS", []string{"localhost:9092"})
	if tapeSink == SinkKafka && len(kafkaBrokers) == 0 {
		return nil, fmt.Errorf("invalid KAFKA_BROKERS: at least one broker is required")
	}

	vwapWindow, err := getDuration("VWAP_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid VWAP_WINDOW: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		LogLevel:        logLevel,
		Symbol:          getStr("SYMBOL", ""),
		PriceScale:      priceScale,
		QueueSize:       queueSize,
		TapeSink:        tapeSink,
		TapeFile:        getStr("TAPE_FILE", "tape.txt"),
		TapeFileMode:    tapeFileMode,
		TapeWipe:        tapeWipe,
		KafkaBrokers:    kafkaBrokers,
		KafkaTopic:      getStr("KAFKA_TOPIC", "trades"),
		PebbleDir:       getStr("PEBBLE_DIR", "tape.db"),
		MetricsFile:     getStr("METRICS_FILE", ""),
		VWAPWindow:      vwapWindow,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

// getList splits a comma separated value, dropping empty items.
func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
