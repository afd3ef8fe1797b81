package probe

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ls-github123/openai-chat-deploy/internal/config"
)

func TestMysqlDSN(t *testing.T) {
	spec := config.ProbeSpec{Host: "127.0.0.1", Port: 3306, User: "root", Database: "openai_chat_db"}
	got := mysqlDSN(spec, "pw")
	want := "root:pw@tcp(127.0.0.1:3306)/openai_chat_db?timeout=5s"
	if got != want {
		t.Errorf("mysqlDSN() = %q, want %q", got, want)
	}
}

func TestPostgresDSN(t *testing.T) {
	spec := config.ProbeSpec{Host: "127.0.0.1", Port: 5432, User: "logto", Database: "logto"}
	got := postgresDSN(spec, "pw")
	want := "host=127.0.0.1 port=5432 user=logto password=pw dbname=logto sslmode=disable connect_timeout=5"
	if got != want {
		t.Errorf("postgresDSN() = %q, want %q", got, want)
	}
}

func TestWait_MissingPasswordKey(t *testing.T) {
	p := New(time.Millisecond, zerolog.Nop())
	specs := []config.ProbeSpec{{Engine: "mysql", Host: "127.0.0.1", Port: 3306, PasswordKey: "MYSQL_ROOT_PASSWORD"}}

	err := p.Wait(context.Background(), specs, map[string]string{})
	if err == nil {
		t.Fatal("Wait() expected error for unrendered password key")
	}
	if !strings.Contains(err.Error(), "MYSQL_ROOT_PASSWORD") {
		t.Errorf("Wait() error = %v, want mention of the missing key", err)
	}
}

func TestWait_UnknownEngine(t *testing.T) {
	p := New(time.Millisecond, zerolog.Nop())
	specs := []config.ProbeSpec{{Engine: "cassandra", Host: "127.0.0.1", Port: 9042, PasswordKey: "PW"}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx, specs, map[string]string{"PW": "x"})
	if err == nil {
		t.Fatal("Wait() expected error for unknown engine")
	}
	if !strings.Contains(err.Error(), "cassandra") {
		t.Errorf("Wait() error = %v, want mention of the engine", err)
	}
}

func TestWait_DeadlineWhenUnreachable(t *testing.T) {
	p := New(10*time.Millisecond, zerolog.Nop())
	// Reserved TEST-NET-1 address: connection attempts hang or fail fast,
	// either way the probe must give up at the context deadline.
	specs := []config.ProbeSpec{{Engine: "redis", Host: "192.0.2.1", Port: 6379, PasswordKey: "PW"}}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Wait(ctx, specs, map[string]string{"PW": "x"})
	if err == nil {
		t.Fatal("Wait() expected error for unreachable service")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Wait() took %v, expected to stop at context deadline", elapsed)
	}
}
