package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModeSelection(t *testing.T) {
	tests := []struct {
		name      string
		fetchUser string
		loadFile  string
		valid     bool
	}{
		{
			name:      "Fetch only - valid",
			fetchUser: "alice",
			valid:     true,
		},
		{
			name:     "Load only - valid",
			loadFile: "tweets.json",
			valid:    true,
		},
		{
			name:  "Neither - invalid",
			valid: false,
		},
		{
			name:      "Both - invalid",
			fetchUser: "alice",
			loadFile:  "tweets.json",
			valid:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, exactlyOneMode(tt.fetchUser, tt.loadFile))
		})
	}
}
