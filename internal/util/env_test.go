package util

import "testing"

func TestGetEnvString(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		set      bool
		fallback string
		want     string
	}{
		{name: "set", value: "ollama", set: true, fallback: "openai", want: "ollama"},
		{name: "unset", set: false, fallback: "openai", want: "openai"},
		{name: "empty counts as unset", value: "", set: true, fallback: "openai", want: "openai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.set {
				t.Setenv("TEST_ENV_STRING", tt.value)
			}
			if got := GetEnvString("TEST_ENV_STRING", tt.fallback); got != tt.want {
				t.Fatalf("GetEnvString = %q, want %q", got, tt.want)
			}
		})
	}
}
