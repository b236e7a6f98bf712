package csvout

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	harvester "github.com/jamesprial/go-reddit-harvester"
	"github.com/jamesprial/go-reddit-harvester/internal/testutil"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse %s: %v", path, err)
	}
	return records
}

func TestWriter_HeaderAndRows(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", nil)
	run := testutil.NewTestRun()

	comments := []harvester.Comment{
		testutil.NewTestComment("c1", "post", "alice", "first, with a comma"),
		testutil.NewTestComment("c2", "post", "bob", "second\nspans lines"),
	}

	if err := w.WriteQuery(context.Background(), run, "generics", comments); err != nil {
		t.Fatalf("WriteQuery failed: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "generics_comments.csv"))
	if len(records) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d records", len(records))
	}

	want := "body,author,created_utc,id,link_id,parent_id,subreddit,subreddit_id"
	if got := strings.Join(records[0], ","); got != want {
		t.Errorf("Expected header %q, got %q", want, got)
	}

	if records[1][0] != "first, with a comma" || records[1][3] != "c1" {
		t.Errorf("Unexpected first row: %v", records[1])
	}
	if records[2][0] != "second\nspans lines" || records[2][1] != "bob" {
		t.Errorf("Unexpected second row: %v", records[2])
	}
	if records[1][4] != "t3_post" {
		t.Errorf("Expected link_id t3_post, got %s", records[1][4])
	}
}

func TestWriter_EmptyResult(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", nil)

	if err := w.WriteQuery(context.Background(), testutil.NewTestRun(), "nothing", nil); err != nil {
		t.Fatalf("WriteQuery failed: %v", err)
	}

	records := readCSV(t, w.Path("nothing"))
	if len(records) != 1 {
		t.Fatalf("Expected header only, got %d records", len(records))
	}
	if len(records[0]) != len(harvester.DefaultFields) {
		t.Errorf("Expected %d header columns, got %d", len(harvester.DefaultFields), len(records[0]))
	}
}

func TestWriter_StripsQuotes(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", nil)

	if err := w.WriteQuery(context.Background(), testutil.NewTestRun(), `"test"`, nil); err != nil {
		t.Fatalf("WriteQuery failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "test_comments.csv")); err != nil {
		t.Errorf("Expected test_comments.csv: %v", err)
	}
}

func TestWriter_Overwrites(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "", nil)
	ctx := context.Background()

	first := []harvester.Comment{
		testutil.NewTestComment("c1", "post", "alice", "one"),
		testutil.NewTestComment("c2", "post", "alice", "two"),
	}
	if err := w.WriteQuery(ctx, testutil.NewTestRun(), "q", first); err != nil {
		t.Fatalf("First write failed: %v", err)
	}

	second := []harvester.Comment{testutil.NewTestComment("c3", "post", "bob", "three")}
	if err := w.WriteQuery(ctx, testutil.NewTestRun(), "q", second); err != nil {
		t.Fatalf("Second write failed: %v", err)
	}

	records := readCSV(t, w.Path("q"))
	if len(records) != 2 {
		t.Fatalf("Expected header + 1 row after overwrite, got %d records", len(records))
	}
	if records[1][3] != "c3" {
		t.Errorf("Expected c3, got %s", records[1][3])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the output file, found %d entries", len(entries))
	}
}

func TestWriter_CustomFields(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, ".csv", []string{"id", "created_utc"})

	c := testutil.NewTestComment("c1", "post", "alice", "body")
	c.CreatedUTC = 1608000000

	if err := w.WriteQuery(context.Background(), testutil.NewTestRun(), "q", []harvester.Comment{c}); err != nil {
		t.Fatalf("WriteQuery failed: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "q.csv"))
	if got := strings.Join(records[1], ","); got != "c1,1608000000" {
		t.Errorf("Expected row c1,1608000000, got %s", got)
	}
}

func TestWriter_MissingParentDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// output dir is a regular file
	w := New(blocker, "", nil)
	if err := w.WriteQuery(context.Background(), testutil.NewTestRun(), "q", nil); err == nil {
		t.Fatal("Expected error when output dir is a file")
	}
}
