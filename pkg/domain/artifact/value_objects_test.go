package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"scp syntax", "git@github.com:acme/payments.git", "https://github.com/acme/payments"},
		{"ssh scheme", "ssh://git@gitlab.com/acme/payments", "https://gitlab.com/acme/payments"},
		{"https with git suffix", "https://github.com/acme/payments.git", "https://github.com/acme/payments"},
		{"trailing slash", "https://internal-scm.acme.dev/team/repo/", "https://internal-scm.acme.dev/team/repo"},
		{"bare domain path", "internal-scm.acme.dev/team/repo", "https://internal-scm.acme.dev/team/repo"},
		{"already normalized", "https://github.com/acme/payments", "https://github.com/acme/payments"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRepoURL(tt.in))
		})
	}
}

func TestNormalizeRepoURL_CollapsesEquivalentForms(t *testing.T) {
	forms := []string{
		"git@github.com:acme/payments.git",
		"https://github.com/acme/payments.git",
		"https://github.com/acme/payments",
	}
	want := "https://github.com/acme/payments"
	for _, f := range forms {
		assert.Equal(t, want, NormalizeRepoURL(f), "form %q", f)
	}
}
