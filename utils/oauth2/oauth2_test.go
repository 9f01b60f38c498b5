package oauth2_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/materials-data-facility/connect/utils/oauth2"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name          string
		opts          []oauth2.Option
		expectedError []error
	}{
		{
			name: "NoTokenURL",
			opts: []oauth2.Option{
				oauth2.WithClientID("test-client-id"),
				oauth2.WithClientSecret("test-client-secret"),
			},
			expectedError: []error{oauth2.ErrTokenURLRequired},
		},
		{
			name: "NoClientID",
			opts: []oauth2.Option{
				oauth2.WithClientSecret("test-client-secret"),
				oauth2.WithTokenURL("https://auth.example.org/token"),
			},
			expectedError: []error{oauth2.ErrClientIDMustBeSet},
		},
		{
			name: "NoClientSecret",
			opts: []oauth2.Option{
				oauth2.WithClientID("test-client-id"),
				oauth2.WithTokenURL("https://auth.example.org/token"),
			},
			expectedError: []error{oauth2.ErrClientSecretMustBeSet},
		},
		{
			name: "NothingSet",
			opts: []oauth2.Option{},
			expectedError: []error{
				oauth2.ErrClientIDMustBeSet,
				oauth2.ErrClientSecretMustBeSet,
				oauth2.ErrTokenURLRequired,
			},
		},
		{
			name: "SuccessCase",
			opts: []oauth2.Option{
				oauth2.WithClientID("test-client-id"),
				oauth2.WithClientSecret("test-client-secret"),
				oauth2.WithTokenURL("https://auth.example.org/token"),
				oauth2.WithScopes("scope1", "scope2"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := oauth2.NewClient(tt.opts...)

			if tt.expectedError != nil {
				for _, expectedError := range tt.expectedError {
					assert.ErrorIs(t, err, expectedError)
				}

				assert.Nil(t, client)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, client)

				if transport, ok := client.Transport.(*oauth2.TokenInjector); ok {
					assert.NotNil(t, transport)
				} else {
					t.Fatal("unexpected transport type")
				}
			}
		})
	}
}
