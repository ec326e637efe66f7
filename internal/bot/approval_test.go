package bot

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abdulachik/replyguy/internal/feed"
)

func TestTerminalApprover(t *testing.T) {
	c := feed.Candidate{ContentID: "1", Author: "alice", BodyText: "some post text"}

	tests := []struct {
		name  string
		input string
		want  Decision
	}{
		{"yes", "y\n", Approve},
		{"yes full word", "yes\n", Approve},
		{"yes uppercase", "YES\n", Approve},
		{"skip", "s\n", Skip},
		{"empty line", "\n", Skip},
		{"garbage", "whatever\n", Skip},
		{"closed input", "", Skip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			a := &TerminalApprover{In: strings.NewReader(tt.input), Out: &out}
			assert.Equal(t, tt.want, a.Review(c, "a pending reply"))
			assert.Contains(t, out.String(), "a pending reply")
			assert.Contains(t, out.String(), "@alice")
		})
	}
}

func TestDelayApprover(t *testing.T) {
	var slept time.Duration
	a := NewDelayApprover(15 * time.Second)
	a.sleep = func(d time.Duration) { slept = d }

	c := feed.Candidate{ContentID: "1", Author: "alice", BodyText: "some post text"}
	got := a.Review(c, "a pending reply")

	assert.Equal(t, Approve, got)
	assert.Equal(t, 15*time.Second, slept)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short", excerpt("short", 10))
	assert.Equal(t, "abcde...", excerpt("abcdefgh", 5))
}
