package core_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datasweeper/internal/core"
	_ "github.com/JonMunkholm/datasweeper/internal/core/formats"
	"github.com/JonMunkholm/datasweeper/internal/frame"
)

type countingRecorder struct {
	mu       sync.Mutex
	loaded   map[string]int
	rejected map[string]int
	ops      map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		loaded:   map[string]int{},
		rejected: map[string]int{},
		ops:      map[string]int{},
	}
}

func (r *countingRecorder) FileLoaded(format string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded[format]++
}

func (r *countingRecorder) FileRejected(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[code]++
}

func (r *countingRecorder) Operation(name string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name]++
}

func (r *countingRecorder) SessionsActive(int) {}

func csvInput(name, body string) core.UploadInput {
	return core.UploadInput{Name: name, Size: int64(len(body)), Reader: strings.NewReader(body)}
}

// upload creates a session and loads the given files, failing on any
// per-file error.
func upload(t *testing.T, svc *core.Service, files ...core.UploadInput) (string, []core.FileInfo) {
	t.Helper()
	sess := svc.CreateSession()
	res, err := svc.Upload(context.Background(), sess.ID, files)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	return sess.ID, res.Files
}

func TestUpload_SkipsUnsupportedFiles(t *testing.T) {
	rec := newCountingRecorder()
	svc := core.NewService(core.Options{}, nil, rec)
	sess := svc.CreateSession()

	res, err := svc.Upload(context.Background(), sess.ID, []core.UploadInput{
		csvInput("notes.txt", "hello"),
		csvInput("people.csv", "id,name\n1,alice\n2,bob\n"),
	})
	require.NoError(t, err)

	require.Len(t, res.Files, 1)
	assert.Equal(t, []string{"people.csv"}, res.Processed())
	assert.Equal(t, 2, res.Files[0].Rows)
	assert.Len(t, res.Files[0].Columns, 2)
	assert.Equal(t, ".csv", res.Files[0].Extension)
	assert.Equal(t, "0.02", res.Files[0].SizeKB)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "notes.txt", res.Errors[0].Name)
	assert.Equal(t, "FILE001", res.Errors[0].Code)

	assert.Equal(t, 1, rec.loaded["csv"])
	assert.Equal(t, 1, rec.rejected["FILE001"])

	info, err := svc.GetSession(sess.ID)
	require.NoError(t, err)
	assert.Len(t, info.Files, 1)
	assert.False(t, info.CanMerge)
}

func TestUpload_PerFileErrors(t *testing.T) {
	svc := core.NewService(core.Options{MaxFileSize: 32, MaxFiles: 2}, nil, nil)
	sess := svc.CreateSession()

	res, err := svc.Upload(context.Background(), sess.ID, []core.UploadInput{
		csvInput("empty.csv", ""),
		csvInput("big.csv", "a,b\n"+strings.Repeat("1,2\n", 20)),
		csvInput("ragged.csv", "a\n1,2\n"),
		csvInput("one.csv", "a\n1\n"),
		csvInput("two.csv", "a\n2\n"),
		csvInput("three.csv", "a\n3\n"),
	})
	require.NoError(t, err)

	codes := make(map[string]string)
	for _, fe := range res.Errors {
		codes[fe.Name] = fe.Code
	}
	assert.Equal(t, map[string]string{
		"empty.csv":  "FILE005",
		"big.csv":    "FILE006",
		"ragged.csv": "FILE002",
		"three.csv":  "SES003",
	}, codes)
	assert.Equal(t, []string{"one.csv", "two.csv"}, res.Processed())
}

func TestUpload_Errors(t *testing.T) {
	svc := core.NewService(core.Options{}, nil, nil)

	_, err := svc.Upload(context.Background(), "missing", []core.UploadInput{csvInput("a.csv", "a\n1\n")})
	require.ErrorIs(t, err, core.ErrSessionNotFound)

	sess := svc.CreateSession()
	_, err = svc.Upload(context.Background(), sess.ID, nil)
	require.ErrorIs(t, err, core.ErrNoFiles)
	assert.Equal(t, "FILE004", core.MapError(err).Code)
}

func TestPreview(t *testing.T) {
	svc := core.NewService(core.Options{PreviewRows: 2, MaxPreviewRows: 3}, nil, nil)
	sid, files := upload(t, svc, csvInput("n.csv", "n,label\n1,a\n2,b\n3,\n4,d\n"))
	fid := files[0].ID

	tests := []struct {
		n    int
		want int
	}{
		{0, 2},
		{1, 1},
		{10, 3},
	}
	for _, tt := range tests {
		p, err := svc.Preview(sid, fid, tt.n)
		require.NoError(t, err)
		assert.Len(t, p.Rows, tt.want, "n=%d", tt.n)
		assert.Equal(t, 4, p.TotalRows)
	}

	p, err := svc.Preview(sid, fid, 3)
	require.NoError(t, err)
	assert.Equal(t, []any{frame.Float(3), nil}, p.Rows[2])
	assert.Equal(t, 1, p.Columns[1].Missing)

	_, err = svc.Preview(sid, "nope", 1)
	require.ErrorIs(t, err, core.ErrFileNotFound)
}

func TestSummaryAndCorrelation(t *testing.T) {
	svc := core.NewService(core.Options{}, nil, nil)
	sid, files := upload(t, svc, csvInput("s.csv", "x,y,label\n1,2,a\n2,4,b\n3,6,a\n4,8,c\n"))
	fid := files[0].ID

	stats, err := svc.Summary(sid, fid)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, "2.5", stats[0].Stat("mean"))
	assert.Equal(t, "1.75", stats[0].Stat("25%"))
	assert.Equal(t, "a", stats[2].Stat("top"))
	assert.Equal(t, "2", stats[2].Stat("freq"))

	corr, err := svc.Correlation(sid, fid)
	require.NoError(t, err)
	assert.Empty(t, corr.Message)
	assert.Equal(t, []string{"x", "y"}, corr.Columns)
	assert.InDelta(t, 1.0, float64(corr.Matrix[0][1]), 1e-12)
	assert.InDelta(t, 1.0, float64(corr.Matrix[0][0]), 1e-12)
	assert.False(t, corr.Encoded)

	// Correlation must not recode the working table.
	p, err := svc.Preview(sid, fid, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", p.Rows[0][2])
}

func TestClean(t *testing.T) {
	svc := core.NewService(core.Options{FoldAccents: true}, nil, nil)
	sid, files := upload(t, svc, csvInput("c.csv", "a,b\n1,Café!\n1,Café!\n,x\n2,\n"))
	fid := files[0].ID

	res, err := svc.Clean(sid, fid, core.OpDropDuplicates)
	require.NoError(t, err)
	assert.Equal(t, "Duplicates Removed!", res.Message)
	assert.Equal(t, 4, res.RowsBefore)
	assert.Equal(t, 3, res.RowsAfter)

	res, err = svc.Clean(sid, fid, core.OpDropDuplicates)
	require.NoError(t, err)
	assert.Equal(t, res.RowsBefore, res.RowsAfter)

	res, err = svc.Clean(sid, fid, core.OpNormalizeText)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CellsChanged)

	res, err = svc.Clean(sid, fid, core.OpFillMissing)
	require.NoError(t, err)
	assert.Equal(t, "Missing Values have been Filled!", res.Message)
	assert.Equal(t, 2, res.CellsChanged)

	exp, err := svc.Export(sid, fid, "csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,cafe\n1,x\n2,cafe\n", string(exp.Data))

	_, err = svc.Clean(sid, fid, core.CleanOperation("shuffle"))
	require.ErrorIs(t, err, core.ErrUnknownOperation)
}

func TestSelectColumnsAndExport(t *testing.T) {
	svc := core.NewService(core.Options{}, nil, nil)
	sid, files := upload(t, svc, csvInput("people.csv", "id,name,age\n1,alice,30\n2,bob,\n"))
	fid := files[0].ID

	info, err := svc.SetMergeKey(sid, fid, "name")
	require.NoError(t, err)
	assert.Equal(t, "name", info.MergeKey)

	info, err = svc.SelectColumns(sid, fid, []string{"age", "id", "age"})
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "id"}, info.Selected)
	assert.Equal(t, "age", info.MergeKey, "unselected merge key falls back to the first selected column")

	exp, err := svc.Export(sid, fid, "csv")
	require.NoError(t, err)
	assert.Equal(t, "people.csv", exp.FileName)
	assert.Equal(t, "text/csv", exp.MIME)
	assert.Equal(t, "age,id\n30,1\n,2\n", string(exp.Data))

	exp, err = svc.Export(sid, fid, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, "people.xlsx", exp.FileName)
	assert.NotEmpty(t, exp.Data)

	// Preview still sees every column.
	p, err := svc.Preview(sid, fid, 1)
	require.NoError(t, err)
	assert.Len(t, p.Columns, 3)

	_, err = svc.SelectColumns(sid, fid, []string{"salary"})
	require.ErrorIs(t, err, frame.ErrUnknownColumn)
	assert.Equal(t, "TBL001", core.MapError(err).Code)

	_, err = svc.SetMergeKey(sid, fid, "name")
	require.ErrorIs(t, err, frame.ErrUnknownColumn)

	info, err = svc.SelectColumns(sid, fid, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, info.Selected)

	_, err = svc.Export(sid, fid, "parquet")
	require.ErrorIs(t, err, core.ErrUnknownFormat)
	assert.Equal(t, "VAL003", core.MapError(err).Code)
}

func TestMerge(t *testing.T) {
	svc := core.NewService(core.Options{}, nil, nil)
	sid, files := upload(t, svc,
		csvInput("left.csv", "id,name\n3,c\n1,a\n2,b\n"),
		csvInput("right.csv", "id,score\n2,10\n4,20\n"),
	)

	info, err := svc.GetSession(sid)
	require.NoError(t, err)
	assert.True(t, info.CanMerge)

	merged, err := svc.Merge(sid)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "name", "score"},
		{"1", "a", ""},
		{"2", "b", "10"},
		{"3", "c", ""},
		{"4", "", "20"},
	}, merged.Records())

	p, err := svc.MergedPreview(sid, 2)
	require.NoError(t, err)
	assert.Len(t, p.Rows, 2)
	assert.Equal(t, 4, p.TotalRows)

	exp, err := svc.ExportMerged(sid)
	require.NoError(t, err)
	assert.Equal(t, core.MergedFileName, exp.FileName)
	assert.Equal(t, "id,name,score\n1,a,\n2,b,10\n3,c,\n4,,20\n", string(exp.Data))

	// A merge key the running table lacks fails.
	_, err = svc.SelectColumns(sid, files[1].ID, []string{"score"})
	require.NoError(t, err)
	_, err = svc.Merge(sid)
	require.ErrorIs(t, err, frame.ErrMergeKey)
	assert.Equal(t, "MRG002", core.MapError(err).Code)
}

func TestMerge_NeedsTwoFiles(t *testing.T) {
	svc := core.NewService(core.Options{}, nil, nil)
	sid, files := upload(t, svc, csvInput("only.csv", "a\n1\n"))

	_, err := svc.Merge(sid)
	require.ErrorIs(t, err, core.ErrMergeNeedsFiles)
	assert.Equal(t, "MRG001", core.MapError(err).Code)

	require.NoError(t, svc.DeleteFile(sid, files[0].ID))
	require.ErrorIs(t, svc.DeleteFile(sid, files[0].ID), core.ErrFileNotFound)

	require.NoError(t, svc.DeleteSession(sid))
	_, err = svc.GetSession(sid)
	require.ErrorIs(t, err, core.ErrSessionNotFound)
}
