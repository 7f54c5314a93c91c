package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRepoInput(t *testing.T) {
	cases := []struct {
		name      string
		in        string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{name: "shorthand", in: "octo/hello", wantOwner: "octo", wantRepo: "hello"},
		{name: "shorthand with git suffix", in: "octo/hello.git", wantOwner: "octo", wantRepo: "hello"},
		{name: "full url", in: "https://github.com/octo/hello", wantOwner: "octo", wantRepo: "hello"},
		{name: "url with git suffix", in: "https://github.com/octo/hello.git", wantOwner: "octo", wantRepo: "hello"},
		{name: "url with trailing slash", in: "https://github.com/octo/hello/", wantOwner: "octo", wantRepo: "hello"},
		{name: "www host", in: "https://www.github.com/octo/hello", wantOwner: "octo", wantRepo: "hello"},
		{name: "surrounding whitespace", in: "  octo/hello  ", wantOwner: "octo", wantRepo: "hello"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace only", in: "   ", wantErr: true},
		{name: "missing repo", in: "octo", wantErr: true},
		{name: "missing owner", in: "/hello", wantErr: true},
		{name: "too many segments", in: "octo/hello/extra", wantErr: true},
		{name: "non github host", in: "https://gitlab.com/octo/hello", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			owner, repo, err := ParseRepoInput(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOwner, owner)
			assert.Equal(t, tc.wantRepo, repo)
		})
	}
}

func TestCanonicalURL(t *testing.T) {
	assert.Equal(t, "https://github.com/octo/hello", CanonicalURL("octo", "hello"))
}
