package harvester

import "testing"

func TestOutputFilename(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{`"test"`, "test_comments.csv"},
		{"foo bar", "foo bar_comments.csv"},
		{`""quoted twice""`, "quoted twice_comments.csv"},
		{`say "hi" there`, `say "hi" there_comments.csv`},
		{"it's", "it's_comments.csv"},
	}

	for _, tt := range tests {
		if got := OutputFilename(tt.query, DefaultSuffix); got != tt.want {
			t.Errorf("OutputFilename(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}

func TestComment_Field(t *testing.T) {
	c := Comment{
		ID:          "abc",
		Body:        "hello",
		Author:      "alice",
		CreatedUTC:  1608000000,
		LinkID:      "t3_post",
		ParentID:    "t1_parent",
		Subreddit:   "golang",
		SubredditID: "t5_2rc7j",
	}

	want := []string{"hello", "alice", "1608000000", "abc", "t3_post", "t1_parent", "golang", "t5_2rc7j"}
	for i, f := range DefaultFields {
		if got := c.Field(f); got != want[i] {
			t.Errorf("Field(%q) = %q, want %q", f, got, want[i])
		}
	}

	if got := c.Field("score"); got != "" {
		t.Errorf("Expected empty value for unknown field, got %q", got)
	}
}
