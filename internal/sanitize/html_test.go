package sanitize

import (
	"strings"
	"testing"
)

func TestTextStripsAllMarkup(t *testing.T) {
	cases := map[string]string{
		"Tech Meetup":                          "Tech Meetup",
		"<script>alert(1)</script>Career Fair": "Career Fair",
		"<b>Orientation</b>":                   "Orientation",
		"  padded  ":                           "padded",
	}
	for input, want := range cases {
		if got := Text(input); got != want {
			t.Errorf("Text(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestHTMLKeepsFormattingDropsScripts(t *testing.T) {
	got := HTML(`<p>Welcome</p><script>steal()</script><a href="javascript:x()">link</a>`)
	if !strings.Contains(got, "<p>Welcome</p>") {
		t.Errorf("expected paragraph to survive, got %q", got)
	}
	if strings.Contains(got, "script") || strings.Contains(got, "javascript:") {
		t.Errorf("expected executable content to be removed, got %q", got)
	}
}
