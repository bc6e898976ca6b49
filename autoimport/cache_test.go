package autoimport

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidates(c *Cache) map[string][]string {
	out := map[string][]string{}
	for _, name := range c.Names() {
		out[name], _ = c.Candidates(name)
	}
	return out
}

func TestBuildCache(t *testing.T) {
	tests := []struct {
		name    string
		history []string
		want    map[string][]string
	}{
		{
			name:    "empty",
			history: nil,
			want:    map[string][]string{},
		},
		{
			name:    "plain and dotted imports bind the first segment",
			history: []string{"import os", "import a.b.c", "import x.y as z"},
			want: map[string][]string{
				"os": {"import os"},
				"a":  {"import a.b.c"},
				"z":  {"import x.y as z"},
			},
		},
		{
			name:    "from imports",
			history: []string{"from a.b import c", "from os import path as p, sep"},
			want: map[string][]string{
				"c":   {"from a.b import c"},
				"p":   {"from os import path as p"},
				"sep": {"from os import sep"},
			},
		},
		{
			name:    "relative imports are skipped",
			history: []string{"from . import x", "from ..pkg import y"},
			want:    map[string][]string{},
		},
		{
			name:    "duplicates collapse",
			history: []string{"import os", "import os", "print 1; import os"},
			want:    map[string][]string{"os": {"import os"}},
		},
		{
			name:    "distinct statements for one name",
			history: []string{"import a as m", "from os import path as m"},
			want:    map[string][]string{"m": {"from os import path as m", "import a as m"}},
		},
		{
			name: "nested blocks",
			history: []string{
				"if true\n  import os\nend",
				"function f()\n  from a import b\nend",
			},
			want: map[string][]string{
				"os": {"import os"},
				"b":  {"from a import b"},
			},
		},
		{
			name:    "unparsable entries are skipped",
			history: []string{"if true", "import", "from a", "x = (", "import os"},
			want:    map[string][]string{"os": {"import os"}},
		},
		{
			name:    "clear drops earlier entries",
			history: []string{"import os", ":autoimport --clear os"},
			want:    map[string][]string{},
		},
		{
			name:    "clear keeps later entries",
			history: []string{"import a as os", ":autoimport -c os", "import os"},
			want:    map[string][]string{"os": {"import os"}},
		},
		{
			name:    "malformed directives are ignored",
			history: []string{"import os", ":autoimport --clear", ":autoimport -c os extra", ":autoimport --nope"},
			want:    map[string][]string{"os": {"import os"}},
		},
		{
			name:    "list directive does not touch the cache",
			history: []string{"import os", ":autoimport -l"},
			want:    map[string][]string{"os": {"import os"}},
		},
		{
			name:    "prefix must be a whole word",
			history: []string{"import os", ":autoimportx -c os"},
			want:    map[string][]string{"os": {"import os"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidates(BuildCache(tt.history))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("BuildCache() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache()
	c.Add("os", "import os")
	assert.Equal(t, 1, c.Len())

	assert.True(t, c.Clear("os"))
	assert.False(t, c.Clear("os"))
	_, ok := c.Candidates("os")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestParseDirective(t *testing.T) {
	tests := []struct {
		args    string
		want    Directive
		wantErr bool
	}{
		{args: "-c foo", want: Directive{Clear: "foo"}},
		{args: "--clear=foo", want: Directive{Clear: "foo"}},
		{args: "  -l  ", want: Directive{List: true}},
		{args: "--list -c foo", want: Directive{Clear: "foo", List: true}},
		{args: "", want: Directive{}},
		{args: "--clear", wantErr: true},
		{args: "-x", wantErr: true},
		{args: "foo", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.args, func(t *testing.T) {
			got, err := ParseDirective(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectiveUsage(t *testing.T) {
	usage := DirectiveUsage()
	assert.Contains(t, usage, "--clear")
	assert.Contains(t, usage, "--list")
}

func TestMetricsRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.Imports.Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, "bplplus_autoimport_imports_total")
	assert.Contains(t, names, "bplplus_autoimport_cache_names")
}
