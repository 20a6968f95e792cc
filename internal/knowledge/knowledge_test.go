package knowledge

import (
	"strings"
	"testing"
)

func TestChunkOverlap(t *testing.T) {
	text := strings.Repeat("a", 450) + strings.Repeat("b", 450)
	chunks := Chunk(text, 500, 100)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len([]rune(chunks[0])) != 500 {
		t.Errorf("first chunk len = %d", len(chunks[0]))
	}
	// second window starts at 400, so it repeats the last 100 chars of the first
	if chunks[1][:100] != chunks[0][400:] {
		t.Error("chunks do not overlap by 100 characters")
	}
	if got := Chunk("   \n  ", 500, 100); len(got) != 0 {
		t.Errorf("blank text produced chunks: %q", got)
	}
}

func TestSplitAndParseFAQ(t *testing.T) {
	text := "Q: How do I reset my password?\nA: Use the self-service portal.\n\n  \r\n" +
		"Q: Where is the gym?\nA: Basement level.\n\nJust some notes without an answer"
	blocks := SplitFAQ(text)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d: %q", len(blocks), blocks)
	}

	first := ParseFAQ(blocks[0])
	if first.Question != "How do I reset my password?" || first.Answer != "Use the self-service portal." {
		t.Errorf("unexpected entry %+v", first)
	}
	last := ParseFAQ(blocks[2])
	if last.Question != MatchedContentQuestion || last.Answer != "Just some notes without an answer" {
		t.Errorf("unexpected fallback entry %+v", last)
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("How do I connect to the VPN? VPN keeps failing!")
	want := []string{"connect", "vpn", "keeps", "failing"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestRank(t *testing.T) {
	docs := []string{
		"Cafeteria opens at 8am.",
		"VPN setup: install the client, then sign in with MFA.",
		"Reset the VPN password from the portal. VPN tokens expire daily.",
		"Parking permits are issued by facilities.",
	}
	got := Rank("vpn password", docs, 4)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %+v", got)
	}
	if got[0].Index != 2 || got[1].Index != 1 {
		t.Errorf("unexpected order %+v", got)
	}
	if Rank("the of and", docs, 4) != nil {
		t.Error("stop-word query should match nothing")
	}
	if n := len(Rank("vpn", docs, 1)); n != 1 {
		t.Errorf("k not honoured, got %d", n)
	}
}
