package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/newsledger/internal/config"
)

const classifySources = `labels: [News, Entertainment, Sports]
sources:
  - id: daily
    feed: https://daily.example/feed
    aliases:
      showbiz: Entertainment
    rules:
      - category: News
        paths: ["/politics/", "/world/"]
  - id: weekly
    listing: https://weekly.example/
    fallback: Sports
`

// TestClassifyCmd tests label resolution from the command line.
func TestClassifyCmd(t *testing.T) {
	t.Parallel()

	path := writeSourcesFile(t, classifySources)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "rule", args: []string{"daily", "https://daily.example/World/europe/1"}, want: "News (rule)"},
		{name: "alias hint", args: []string{"daily", "https://daily.example/p/2", "--hint", "Showbiz"}, want: "Entertainment (source)"},
		{name: "label hint", args: []string{"daily", "https://daily.example/p/3", "--hint", "sports"}, want: "Sports (source)"},
		{name: "fallback", args: []string{"weekly", "https://weekly.example/a"}, want: "Sports (fallback)"},
		{name: "unclassified", args: []string{"daily", "https://daily.example/p/4"}, want: "unclassified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			args := append([]string{"classify", "-c", path}, tt.args...)
			stdout, _, err := executeCmd(t, args...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if strings.TrimSpace(stdout) != tt.want {
				t.Errorf("expected %q, got %q", tt.want, stdout)
			}
		})
	}

	t.Run("unknown source", func(t *testing.T) {
		t.Parallel()
		_, _, err := executeCmd(t, "classify", "-c", path, "monthly", "https://x.example/")
		var use *config.UnknownSourceError
		if !errors.As(err, &use) {
			t.Errorf("expected UnknownSourceError, got %v", err)
		}
	})

	t.Run("wrong arguments", func(t *testing.T) {
		t.Parallel()
		if _, _, err := executeCmd(t, "classify", "-c", path, "daily"); err == nil {
			t.Error("expected argument error")
		}
	})
}
