package config

import (
	"errors"
	"testing"
	"time"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Judge.Transport != TransportREST {
		t.Errorf("expected rest transport, got %s", cfg.Judge.Transport)
	}
	if cfg.Judge.APIURL != "http://localhost:8101/api" {
		t.Errorf("unexpected judge url %s", cfg.Judge.APIURL)
	}
	if cfg.Judge.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", cfg.Judge.Timeout)
	}
	if cfg.Submission.PageSize != 10 || cfg.Submission.PollInterval != time.Second {
		t.Errorf("unexpected submission config %+v", cfg.Submission)
	}
	if cfg.Editor.DefaultLanguage != domain.LangJava {
		t.Errorf("expected java default, got %s", cfg.Editor.DefaultLanguage)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JUDGE_TRANSPORT", "AMQP")
	t.Setenv("SUBMISSION_POLL_INTERVAL", "250ms")
	t.Setenv("DEFAULT_LANGUAGE", "go")
	t.Setenv("JUDGE_API_URL", "http://judge:8101/api/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Judge.Transport != TransportAMQP {
		t.Errorf("expected amqp, got %s", cfg.Judge.Transport)
	}
	if cfg.Submission.PollInterval != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %s", cfg.Submission.PollInterval)
	}
	if cfg.Editor.DefaultLanguage != domain.LangGo {
		t.Errorf("expected go, got %s", cfg.Editor.DefaultLanguage)
	}
	if cfg.Judge.APIURL != "http://judge:8101/api" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Judge.APIURL)
	}
}

func TestLoad_RejectsUnknownTransport(t *testing.T) {
	t.Setenv("JUDGE_TRANSPORT", "grpc")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown transport")
	}
}

func TestLoad_RejectsUnknownLanguage(t *testing.T) {
	t.Setenv("DEFAULT_LANGUAGE", "cobol")
	_, err := Load()
	if !errors.Is(err, domain.ErrInvalidLanguage) {
		t.Errorf("expected ErrInvalidLanguage, got %v", err)
	}
}
