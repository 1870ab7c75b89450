package llm

import (
	"testing"

	"github.com/aescanero/dagocrew/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantName string
		wantErr  string
	}{
		{name: "anthropic", cfg: Config{Provider: "anthropic", APIKey: "k"}, wantName: "anthropic"},
		{name: "openai", cfg: Config{Provider: "openai", APIKey: "k", BaseURL: "http://localhost:11434/v1/"}, wantName: "openai"},
		{name: "missing key", cfg: Config{Provider: "anthropic"}, wantErr: "API key is required"},
		{name: "unknown provider", cfg: Config{Provider: "gemini", APIKey: "k"}, wantErr: "gemini"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(&tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Name())
		})
	}

	t.Run("unsupported provider sentinel", func(t *testing.T) {
		_, err := NewClient(&Config{Provider: "cohere", APIKey: "k"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedProvider)
	})
}
