package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCustomSchemas(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		want    []string
	}{
		{"只有 http", []string{"http://localhost:1420", "https://app.example"}, nil},
		{"tauri", []string{"tauri://localhost", "http://localhost:1420"}, []string{"tauri://"}},
		{"去重", []string{"tauri://localhost", "tauri://other", "app://x"}, []string{"tauri://", "app://"}},
		{"通配符", []string{"*"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, customSchemas(tt.origins))
		})
	}
}
