package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.Symbol != "" {
		t.Errorf("Symbol = %q, want empty", cfg.Symbol)
	}
	if cfg.PriceScale != 2 {
		t.Errorf("PriceScale = %d, want 2", cfg.PriceScale)
	}
	if cfg.QueueSize != 1024 {
		t.Errorf("QueueSize = %d, want 1024", cfg.QueueSize)
	}
	if cfg.TapeSink != SinkFile || cfg.TapeFile != "tape.txt" || cfg.TapeFileMode != "truncate" || cfg.TapeWipe {
		t.Errorf("unexpected tape defaults %q %q %q %v", cfg.TapeSink, cfg.TapeFile, cfg.TapeFileMode, cfg.TapeWipe)
	}
	if !reflect.DeepEqual(cfg.KafkaBrokers, []string{"localhost:9092"}) || cfg.KafkaTopic != "trades" {
		t.Errorf("unexpected kafka defaults %v %q", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	if cfg.PebbleDir != "tape.db" {
		t.Errorf("PebbleDir = %q, want tape.db", cfg.PebbleDir)
	}
	if cfg.MetricsFile != "" {
		t.Errorf("MetricsFile = %q, want empty", cfg.MetricsFile)
	}
	if cfg.VWAPWindow != 5*time.Minute {
		t.Errorf("VWAPWindow = %v, want 5m", cfg.VWAPWindow)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SYMBOL", "XYZ")
	t.Setenv("PRICE_SCALE", "4")
	t.Setenv("QUEUE_SIZE", "8")
	t.Setenv("TAPE_SINK", "Kafka")
	t.Setenv("TAPE_FILE", "/tmp/out.txt")
	t.Setenv("TAPE_FILE_MODE", "append")
	t.Setenv("TAPE_WIPE", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("KAFKA_TOPIC", "xyz.trades")
	t.Setenv("PEBBLE_DIR", "/var/lib/tape")
	t.Setenv("METRICS_FILE", "/tmp/m.prom")
	t.Setenv("VWAP_WINDOW", "10m")
	t.Setenv("SHUTDOWN_TIMEOUT", "15s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &Config{
		LogLevel:        "debug",
		Symbol:          "XYZ",
		PriceScale:      4,
		QueueSize:       8,
		TapeSink:        SinkKafka,
		TapeFile:        "/tmp/out.txt",
		TapeFileMode:    "append",
		TapeWipe:        true,
		KafkaBrokers:    []string{"k1:9092", "k2:9092"},
		KafkaTopic:      "xyz.trades",
		PebbleDir:       "/var/lib/tape",
		MetricsFile:     "/tmp/m.prom",
		VWAPWindow:      10 * time.Minute,
		ShutdownTimeout: 15 * time.Second,
	}
	if !reflect.DeepEqual(cfg, want) {
		t.Errorf("Load() = %+v\nwant %+v", cfg, want)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"LOG_LEVEL":        "verbose",
		"PRICE_SCALE":      "9",
		"QUEUE_SIZE":       "0",
		"TAPE_SINK":        "s3",
		"TAPE_FILE_MODE":   "w+",
		"TAPE_WIPE":        "sometimes",
		"VWAP_WINDOW":      "not-a-duration",
		"SHUTDOWN_TIMEOUT": "not-a-duration",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoad_NegativePriceScale(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_SCALE", "-1")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative PRICE_SCALE")
	}
}

func TestLoad_KafkaNeedsBrokers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAPE_SINK", "kafka")
	t.Setenv("KAFKA_BROKERS", " , ")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for kafka sink without brokers")
	}
}
