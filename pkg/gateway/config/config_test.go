package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("MEETINGMIND_DATABASE_URL", "postgres://localhost:5432/meetingmind")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.LiveFlushThreshold != 3.0 {
		t.Fatalf("LiveFlushThreshold=%v", cfg.LiveFlushThreshold)
	}
	if cfg.LiveSampleRate != 16000 {
		t.Fatalf("LiveSampleRate=%d", cfg.LiveSampleRate)
	}
	if cfg.LiveMaxBufferedChunks != 100 {
		t.Fatalf("LiveMaxBufferedChunks=%d", cfg.LiveMaxBufferedChunks)
	}
	if cfg.StorageBucket != "meeting-audio" {
		t.Fatalf("StorageBucket=%q", cfg.StorageBucket)
	}
	if cfg.WorkerMaxAttempts != 3 {
		t.Fatalf("WorkerMaxAttempts=%d", cfg.WorkerMaxAttempts)
	}
	if cfg.ShutdownGracePeriod != 30*time.Second {
		t.Fatalf("ShutdownGracePeriod=%v", cfg.ShutdownGracePeriod)
	}
}

func TestLoadFromEnv_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("MEETINGMIND_DATABASE_URL", "")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error without database url")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("MEETINGMIND_DATABASE_URL", "postgres://db:5432/mm")
	t.Setenv("MEETINGMIND_ADDR", ":9999")
	t.Setenv("MEETINGMIND_LIVE_FLUSH_THRESHOLD_SECONDS", "1.5")
	t.Setenv("MEETINGMIND_LIVE_WS_PING_INTERVAL", "45s")
	t.Setenv("MEETINGMIND_MAX_UPLOAD_BYTES", "1048576")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr=%q", cfg.Addr)
	}
	if cfg.LiveFlushThreshold != 1.5 {
		t.Fatalf("LiveFlushThreshold=%v", cfg.LiveFlushThreshold)
	}
	if cfg.LiveWSPingInterval != 45*time.Second {
		t.Fatalf("LiveWSPingInterval=%v", cfg.LiveWSPingInterval)
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Fatalf("MaxUploadBytes=%d", cfg.MaxUploadBytes)
	}
}

func TestLoadFromEnv_InvalidNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("MEETINGMIND_DATABASE_URL", "postgres://db:5432/mm")
	t.Setenv("MEETINGMIND_LIVE_MAX_BUFFERED_CHUNKS", "not-a-number")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.LiveMaxBufferedChunks != 100 {
		t.Fatalf("LiveMaxBufferedChunks=%d, want default 100", cfg.LiveMaxBufferedChunks)
	}
}

func TestLoadFromEnv_RejectsNonPositiveThreshold(t *testing.T) {
	t.Setenv("MEETINGMIND_DATABASE_URL", "postgres://db:5432/mm")
	t.Setenv("MEETINGMIND_LIVE_FLUSH_THRESHOLD_SECONDS", "-1")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error for negative flush threshold")
	}
}
