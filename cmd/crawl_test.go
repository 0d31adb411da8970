package cmd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCookieDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"subdomain widens", "https://www.ptt.cc", ".ptt.cc"},
		{"deep subdomain widens", "https://m.www.ptt.cc", ".www.ptt.cc"},
		{"bare domain stays", "https://ptt.cc", "ptt.cc"},
		{"single label stays", "http://localhost:8080", "localhost"},
		{"unparseable", "::bad", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, cookieDomain(tt.baseURL))
		})
	}
}
