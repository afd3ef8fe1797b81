package compose

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func TestCLIRunner_BuildArgs(t *testing.T) {
	opts := Options{
		Manifest: "deploy/databases/docker-compose.yml",
		EnvFile:  "deploy/databases/.env",
		Project:  "openai-chat-db",
	}

	tests := []struct {
		name       string
		command    []string
		subcommand []string
		want       []string
	}{
		{
			name:       "plugin up",
			command:    []string{"docker", "compose"},
			subcommand: []string{"up", "-d", "--remove-orphans"},
			want: []string{
				"docker", "compose",
				"--project-name", "openai-chat-db",
				"--file", "deploy/databases/docker-compose.yml",
				"--env-file", "deploy/databases/.env",
				"up", "-d", "--remove-orphans",
			},
		},
		{
			name:       "legacy binary down",
			command:    []string{"docker-compose"},
			subcommand: []string{"down", "--remove-orphans", "--volumes"},
			want: []string{
				"docker-compose",
				"--project-name", "openai-chat-db",
				"--file", "deploy/databases/docker-compose.yml",
				"--env-file", "deploy/databases/.env",
				"down", "--remove-orphans", "--volumes",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &CLIRunner{command: tt.command, log: zerolog.Nop()}
			got := r.buildArgs(opts, tt.subcommand...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("buildArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCLIRunner_BuildArgs_NoEnvFile(t *testing.T) {
	r := &CLIRunner{command: []string{"docker", "compose"}, log: zerolog.Nop()}
	got := r.buildArgs(Options{Manifest: "m.yml", Project: "p"}, "ps")
	for _, arg := range got {
		if arg == "--env-file" {
			t.Errorf("buildArgs() included --env-file with no env file set: %v", got)
		}
	}
}

func TestParseServices_JSONLines(t *testing.T) {
	output := []byte(`{"Service":"mysql","Name":"openai-chat-db-mysql-1","State":"running","Health":"healthy"}
{"Service":"redis","Name":"openai-chat-db-redis-1","State":"running","Health":""}
{"Service":"mongo","Name":"openai-chat-db-mongo-1","State":"exited","Health":""}
`)

	services, err := parseServices(output)
	if err != nil {
		t.Fatalf("parseServices() error = %v", err)
	}

	want := []Service{
		{Name: "mysql", State: "running", Health: "healthy"},
		{Name: "redis", State: "running"},
		{Name: "mongo", State: "exited"},
	}
	if !reflect.DeepEqual(services, want) {
		t.Errorf("parseServices() = %v, want %v", services, want)
	}
}

func TestParseServices_JSONArray(t *testing.T) {
	output := []byte(`[{"Service":"logto","State":"running","Health":"starting"}]`)

	services, err := parseServices(output)
	if err != nil {
		t.Fatalf("parseServices() error = %v", err)
	}
	if len(services) != 1 || services[0].Name != "logto" || services[0].Health != "starting" {
		t.Errorf("parseServices() = %v", services)
	}
}

func TestParseServices_Empty(t *testing.T) {
	services, err := parseServices([]byte("\n"))
	if err != nil {
		t.Fatalf("parseServices() error = %v", err)
	}
	if len(services) != 0 {
		t.Errorf("parseServices() = %v, want empty", services)
	}
}

func TestParseServices_FallsBackToContainerName(t *testing.T) {
	output := []byte(`{"Name":"standalone-container","State":"running"}`)

	services, err := parseServices(output)
	if err != nil {
		t.Fatalf("parseServices() error = %v", err)
	}
	if len(services) != 1 || services[0].Name != "standalone-container" {
		t.Errorf("parseServices() = %v", services)
	}
}
