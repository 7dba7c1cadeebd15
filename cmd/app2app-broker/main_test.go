package main

import (
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/app2app-broker:main_test"

func TestUsage_NonEmpty(t *testing.T) {
	if len(usage) == 0 {
		t.Fatalf("%s - usage string is empty", mainTestPrefix)
	}
}

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate", "clear", "events", "DATABASE_URL", "COMMS_URL"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{nil, 0, false},
		{[]string{""}, 0, false},
		{[]string{"20"}, 20, false},
		{[]string{"-1"}, 0, true},
		{[]string{"ten"}, 0, true},
	}
	for _, tt := range tests {
		got, err := parseLimit(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s - parseLimit(%v) error = %v, wantErr %v", mainTestPrefix, tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("%s - parseLimit(%v) = %d, want %d", mainTestPrefix, tt.args, got, tt.want)
		}
	}
}
