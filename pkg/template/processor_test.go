package template

import (
	"testing"

	"github.com/mosaicdash/mosaic/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestProcessor_Process(t *testing.T) {
	processor := NewProcessor(
		models.User{ID: "u7", Username: "ana"},
		map[string]any{
			"platform": map[string]any{"language": "en"},
		},
		map[string]string{"x": "5", "server": "api.example.org"},
	)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "param", in: "{params.x}", want: "5"},
		{name: "user id", in: "{user.id}", want: "u7"},
		{name: "username", in: "{user.username}", want: "ana"},
		{name: "nested context value", in: "lang={platform.language}", want: "lang=en"},
		{name: "multiple tokens", in: "https://{params.server}/?v={params.x}", want: "https://api.example.org/?v=5"},
		{name: "unknown token left verbatim", in: "{params.missing}", want: "{params.missing}"},
		{name: "no tokens", in: "plain text", want: "plain text"},
		{name: "partial path mismatch", in: "{user.email}", want: "{user.email}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, processor.Process(tt.in))
		})
	}
}

func TestProcessor_AnonymousUser(t *testing.T) {
	processor := NewProcessor(models.User{}, nil, nil)

	assert.Equal(t, models.AnonymousUserID, processor.Process("{user.id}"))
}

func TestProcessor_ReservedKeysWin(t *testing.T) {
	// Ambient context values cannot shadow the user or params namespaces.
	processor := NewProcessor(
		models.User{ID: "u1", Username: "real"},
		map[string]any{"user": map[string]any{"username": "spoofed"}},
		nil,
	)

	assert.Equal(t, "real", processor.Process("{user.username}"))
}
