package vocab_test

import (
	"testing"

	"github.com/sottovoce/sotto/internal/vocab"
)

func TestCorrect_PhoneticMatchReplaces(t *testing.T) {
	t.Parallel()
	c := vocab.New([]string{"Grafana"})

	got := c.Correct("open grafanna and check the dashboard")
	want := "open Grafana and check the dashboard"
	if got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
}

func TestCorrect_ExactMatchNeverRewritten(t *testing.T) {
	t.Parallel()
	c := vocab.New([]string{"Grafana"})

	// Case differs but the word is already correct; casing is left alone.
	got := c.Correct("grafana is up")
	if got != "grafana is up" {
		t.Errorf("Correct = %q, want input unchanged", got)
	}
}

func TestCorrect_PreservesPunctuation(t *testing.T) {
	t.Parallel()
	c := vocab.New([]string{"kubectl"})

	got := c.Correct("then run cubectl, please")
	want := "then run kubectl, please"
	if got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
}

func TestCorrect_UnrelatedWordsUntouched(t *testing.T) {
	t.Parallel()
	c := vocab.New([]string{"sotto"})

	in := "completely unrelated sentence about sailing"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct rewrote an unrelated sentence: %q", got)
	}
}

func TestCorrect_EmptyVocabularyIsIdentity(t *testing.T) {
	t.Parallel()
	c := vocab.New(nil)

	if c.Enabled() {
		t.Error("Enabled should be false for empty vocabulary")
	}
	in := "anything at all"
	if got := c.Correct(in); got != in {
		t.Errorf("Correct = %q, want identity", got)
	}
}

func TestCorrect_EmptyStringsInVocabularyIgnored(t *testing.T) {
	t.Parallel()
	c := vocab.New([]string{"", "  ", "kubectl"})

	if !c.Enabled() {
		t.Fatal("Enabled should be true with one real entry")
	}
	got := c.Correct("use coobectl here")
	if got != "use kubectl here" {
		t.Errorf("Correct = %q", got)
	}
}
