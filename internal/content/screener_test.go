package content

import "testing"

func TestScreenCleanText(t *testing.T) {
	result := Screen("a rocket ship flying to the moon")
	if !result.Clean {
		t.Fatalf("expected clean result, got flagged %v", result.Flagged)
	}
	if result.CleanedText != "a rocket ship flying to the moon" {
		t.Fatalf("clean text should be unchanged, got %q", result.CleanedText)
	}
	if len(result.Flagged) != 0 {
		t.Fatalf("expected no flagged terms, got %v", result.Flagged)
	}
}

func TestScreenReplacesFlaggedTerms(t *testing.T) {
	result := Screen("a gun shooting stars")
	if result.Clean {
		t.Fatalf("expected flagged result")
	}
	if result.CleanedText != "a launcher launching stars" {
		t.Fatalf("cleaned text = %q, want %q", result.CleanedText, "a launcher launching stars")
	}
	if len(result.Flagged) != 2 {
		t.Fatalf("flagged terms = %d, want 2", len(result.Flagged))
	}
	categories := map[string]string{}
	for _, f := range result.Flagged {
		categories[f.Term] = f.Category
	}
	if categories["gun"] != "weapons" {
		t.Fatalf("gun category = %q, want weapons", categories["gun"])
	}
	if categories["shooting"] != "violence" {
		t.Fatalf("shooting category = %q, want violence", categories["shooting"])
	}
}

func TestScreenIsCaseInsensitive(t *testing.T) {
	result := Screen("A SWORD held high")
	if result.Clean {
		t.Fatalf("expected flagged result")
	}
	if result.CleanedText != "A blade held high" {
		t.Fatalf("cleaned text = %q", result.CleanedText)
	}
}

func TestScreenMatchesWholeWordsOnly(t *testing.T) {
	result := Screen("a gunnery sergeant riflebird")
	if !result.Clean {
		t.Fatalf("substrings should not match, got flagged %v", result.Flagged)
	}
}

func TestScreenDoesNotMutateInput(t *testing.T) {
	input := "bomb disposal"
	result := Screen(input)
	if input != "bomb disposal" {
		t.Fatalf("input was mutated")
	}
	if result.CleanedText != "sphere disposal" {
		t.Fatalf("cleaned text = %q", result.CleanedText)
	}
}

func TestFlaggedTermString(t *testing.T) {
	f := FlaggedTerm{Term: "gun", Category: "weapons"}
	if got := f.String(); got != "gun (Weapons)" {
		t.Fatalf("String() = %q", got)
	}
}
