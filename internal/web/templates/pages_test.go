package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/frame"
)

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestSessionPage_EscapesValues(t *testing.T) {
	v := SessionView{
		Session: core.SessionInfo{ID: "s1"},
		Files: []FileView{{
			Info: core.FileInfo{
				ID:       "f1",
				Name:     "<script>.csv",
				Rows:     1,
				Columns:  []core.ColumnInfo{{Name: "a&b", Kind: frame.KindText}},
				Selected: []string{"a&b"},
			},
			Preview: &core.Preview{
				Columns:   []core.ColumnInfo{{Name: "a&b", Kind: frame.KindText}},
				Rows:      [][]any{{"<b>"}},
				TotalRows: 1,
			},
		}},
		Flash:  "Duplicates Removed!",
		Accept: ".csv,.xlsx",
	}

	out := renderString(t, SessionPage(v))
	assert.NotContains(t, out, "<script>.csv")
	assert.Contains(t, out, "&lt;script&gt;.csv")
	assert.Contains(t, out, "<td>&lt;b&gt;</td>")
	assert.Contains(t, out, `value="a&amp;b" checked`)
	assert.Contains(t, out, `action="/sessions/s1/files"`)
	assert.Contains(t, out, `<div class="flash">Duplicates Removed!</div>`)
	assert.Contains(t, out, "1 rows, 1 columns")
}

func TestErrorPage(t *testing.T) {
	out := renderString(t, ErrorPage("Session not found", "Start a new session", "SES001"))
	assert.Contains(t, out, "<title>Error - Data Sweeper</title>")
	assert.Contains(t, out, "<strong>Session not found</strong> Start a new session")
	assert.Contains(t, out, "(Code: SES001)")
}

func TestIndexPage(t *testing.T) {
	out := renderString(t, IndexPage(".csv,.xlsx", 20))
	assert.Contains(t, out, `accept=".csv,.xlsx"`)
	assert.Contains(t, out, "Up to 20 files per session.")
}
