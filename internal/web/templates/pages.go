package templates

import (
	"context"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/core"
	"github.com/JonMunkholm/datasweeper/internal/frame"
)

// IndexPage is the upload form that starts a session.
func IndexPage(accept string, maxFiles int) templ.Component {
	body := component(func(_ context.Context, h *htmlWriter) {
		h.raw("<h2>Upload your files (CSV or Excel)</h2>")
		uploadForm(h, "/sessions", accept)
		h.raw("<p class=\"muted\">Up to ")
		h.text(strconv.Itoa(maxFiles))
		h.raw(" files per session.</p>")
	})
	return Layout("Data Sweeper", body)
}

func uploadForm(h *htmlWriter, action, accept string) {
	h.raw("<form method=\"post\"")
	h.attr("action", action)
	h.raw(" enctype=\"multipart/form-data\"><input type=\"file\" name=\"files\" multiple")
	h.attr("accept", accept)
	h.raw(" required> <button type=\"submit\">Upload</button></form>")
}

// FileView is one file of the session page with its computed sections.
type FileView struct {
	Info        core.FileInfo
	Preview     *core.Preview
	Summary     []frame.ColumnStats
	Correlation *core.CorrelationResult
}

// SessionView is everything the session page shows.
type SessionView struct {
	Session     core.SessionInfo
	Files       []FileView
	Merged      *core.Preview
	MergeError  *core.UserMessage
	Flash       string
	UploadError []core.FileError
	Accept      string
	Formats     []core.FormatDefinition
}

// SessionPage shows every file of a session with its actions.
func SessionPage(v SessionView) templ.Component {
	body := component(func(ctx context.Context, h *htmlWriter) {
		base := "/sessions/" + v.Session.ID

		if v.Flash != "" {
			h.raw("<div class=\"flash\">")
			h.text(v.Flash)
			h.raw("</div>")
		}
		for _, fe := range v.UploadError {
			h.component(ctx, ErrorAlert(fe.Name+": "+fe.Message, fe.Action, fe.Code))
		}

		h.raw("<h2>Add files</h2>")
		uploadForm(h, base+"/files", v.Accept)

		if len(v.Files) == 0 {
			h.raw("<p class=\"muted\">No files in this session yet.</p>")
		}
		for _, f := range v.Files {
			fileSection(ctx, h, base, f, v.Formats)
		}

		if v.Session.CanMerge {
			h.raw("<h2>Merged Data</h2>")
			if v.MergeError != nil {
				h.component(ctx, ErrorAlert(v.MergeError.Message, v.MergeError.Action, v.MergeError.Code))
			} else if v.Merged != nil {
				previewTable(h, v.Merged)
				h.raw("<p><a")
				h.attr("href", "/api"+base+"/merged/export")
				h.raw(">Download Merged CSV</a></p>")
			}
		}

		if names := processedNames(v.Files); names != "" {
			h.raw("<p class=\"flash\">All files processed successfully: ")
			h.text(names)
			h.raw("</p>")
		}
	})
	return Layout("Data Sweeper", body)
}

func processedNames(files []FileView) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Info.Name
	}
	return strings.Join(names, ", ")
}

func postForm(h *htmlWriter, class, action string) {
	h.raw("<form")
	if class != "" {
		h.attr("class", class)
	}
	h.raw(" method=\"post\"")
	h.attr("action", action)
	h.raw(">")
}

func link(h *htmlWriter, href, label string, newTab bool) {
	h.raw("<a")
	h.attr("href", href)
	if newTab {
		h.raw(" target=\"_blank\"")
	}
	h.raw(">")
	h.text(label)
	h.raw("</a>")
}

func fileSection(ctx context.Context, h *htmlWriter, base string, f FileView, formats []core.FormatDefinition) {
	fileBase := base + "/files/" + f.Info.ID

	h.raw("<section class=\"file\"><p><strong>File Name:</strong> ")
	h.text(f.Info.Name)
	h.raw("<br><strong>File Size:</strong> ")
	h.text(f.Info.SizeKB)
	h.raw(" KB<br><strong>Shape:</strong> ")
	h.text(strconv.Itoa(f.Info.Rows) + " rows, " + strconv.Itoa(len(f.Info.Columns)) + " columns")
	h.raw("</p>")

	h.raw("<h3>Preview the Head of the Table</h3>")
	if f.Preview != nil {
		previewTable(h, f.Preview)
	}

	h.raw("<details><summary>Data Summary</summary>")
	summaryTable(h, f.Summary)
	h.raw("</details>")

	h.raw("<details><summary>Correlation Insights</summary>")
	if c := f.Correlation; c != nil {
		if c.Message != "" {
			h.tag("p", c.Message)
		} else {
			if c.Encoded {
				h.raw("<p class=\"muted\">Text columns were converted to category codes.</p>")
			}
			correlationTable(h, c.Correlation)
			h.raw("<p>")
			link(h, "/api"+fileBase+"/charts/correlation", "Open heatmap", true)
			h.raw("</p>")
		}
	}
	h.raw("</details>")

	h.raw("<h3>Data Cleaning Options</h3>")
	for _, op := range core.CleanOperations {
		postForm(h, "inline", fileBase+"/clean")
		h.raw("<input type=\"hidden\" name=\"operation\"")
		h.attr("value", string(op))
		h.raw("><button type=\"submit\">")
		h.text(op.Label())
		h.raw("</button></form>")
	}

	h.raw("<h3>Select Columns to Convert</h3>")
	postForm(h, "", fileBase+"/columns")
	selected := make(map[string]bool, len(f.Info.Selected))
	for _, name := range f.Info.Selected {
		selected[name] = true
	}
	for _, c := range f.Info.Columns {
		h.raw("<label><input type=\"checkbox\" name=\"columns\"")
		h.attr("value", c.Name)
		if selected[c.Name] {
			h.raw(" checked")
		}
		h.raw("> ")
		h.text(c.Name)
		h.raw("</label> ")
	}
	h.raw("<button type=\"submit\">Apply</button></form>")

	h.raw("<h3>Merge Column</h3>")
	postForm(h, "", fileBase+"/merge-key")
	h.raw("<select name=\"column\">")
	for _, name := range f.Info.Selected {
		h.raw("<option")
		h.attr("value", name)
		if name == f.Info.MergeKey {
			h.raw(" selected")
		}
		h.raw(">")
		h.text(name)
		h.raw("</option>")
	}
	h.raw("</select> <button type=\"submit\">Set</button></form>")

	h.raw("<h3>Data Visualization</h3><p>")
	link(h, "/api"+fileBase+"/charts/bar", "Bar chart", true)
	h.raw(" | ")
	link(h, "/api"+fileBase+"/charts/pie", "Pie chart", true)
	h.raw("</p>")

	h.raw("<h3>Conversion Options</h3><p>")
	for i, def := range formats {
		if i > 0 {
			h.raw(" | ")
		}
		link(h, "/api"+fileBase+"/export?format="+def.Key, "Download "+f.Info.Name+" as "+def.Label, false)
	}
	h.raw("</p>")

	postForm(h, "", fileBase+"/delete")
	h.raw("<button type=\"submit\">Remove file</button></form></section>")
}

func previewTable(h *htmlWriter, p *core.Preview) {
	h.raw("<table><thead><tr>")
	for _, c := range p.Columns {
		h.raw("<th>")
		h.text(c.Name)
		h.raw(" <span class=\"muted\">")
		h.text(c.Kind.String())
		h.raw("</span></th>")
	}
	h.raw("</tr></thead><tbody>")
	for _, row := range p.Rows {
		h.raw("<tr>")
		for _, cell := range row {
			writeCell(h, cell)
		}
		h.raw("</tr>")
	}
	h.raw("</tbody></table><p class=\"muted\">")
	h.text("Showing " + strconv.Itoa(len(p.Rows)) + " of " + strconv.Itoa(p.TotalRows) + " rows.")
	h.raw("</p>")
}

func writeCell(h *htmlWriter, cell any) {
	switch v := cell.(type) {
	case nil:
		h.raw("<td class=\"missing\">NaN</td>")
	case frame.Float:
		h.tag("td", strconv.FormatFloat(float64(v), 'f', -1, 64))
	case string:
		h.tag("td", v)
	}
}

func summaryTable(h *htmlWriter, stats []frame.ColumnStats) {
	h.raw("<table><thead><tr><th></th>")
	for _, s := range stats {
		h.tag("th", s.Name)
	}
	h.raw("</tr></thead><tbody>")
	for _, stat := range frame.StatNames {
		h.raw("<tr>")
		h.tag("th", stat)
		for _, s := range stats {
			h.tag("td", s.Stat(stat))
		}
		h.raw("</tr>")
	}
	h.raw("</tbody></table>")
}

func correlationTable(h *htmlWriter, c *frame.Correlation) {
	if c == nil {
		return
	}
	h.raw("<table><thead><tr><th></th>")
	for _, name := range c.Columns {
		h.tag("th", name)
	}
	h.raw("</tr></thead><tbody>")
	for i, row := range c.Matrix {
		h.raw("<tr>")
		h.tag("th", c.Columns[i])
		for _, v := range row {
			if v.Valid() {
				h.tag("td", strconv.FormatFloat(float64(v), 'f', 2, 64))
			} else {
				h.raw("<td class=\"missing\">NaN</td>")
			}
		}
		h.raw("</tr>")
	}
	h.raw("</tbody></table>")
}
