package util

import "testing"

func TestNormalizeText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "punctuation", input: "Riverside Station, Unit 4 (North)", want: "RIVERSIDE STATION UNIT 4 NORTH"},
		{name: "ampersand", input: "Smith & Sons Terminal", want: "SMITH AND SONS TERMINAL"},
		{name: "hash", input: "Tank Farm #2", want: "TANK FARM NO 2"},
		{name: "whitespace", input: "  Riverside \t Station  ", want: "RIVERSIDE STATION"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeText(tc.input); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestTokenizeDropsShortFragments(t *testing.T) {
	tokens := Tokenize("Riverside Station A 12")
	if len(tokens) != 3 {
		t.Fatalf("tokens=%v", tokens)
	}
	if tokens[0] != "RIVERSIDE" || tokens[1] != "STATION" || tokens[2] != "12" {
		t.Fatalf("tokens=%v", tokens)
	}
}

func TestDiceCoefficient(t *testing.T) {
	if DiceCoefficient("RIVERSIDE", "RIVERSIDE") != 1 {
		t.Fatal("identical strings must score 1")
	}
	if DiceCoefficient("", "RIVERSIDE") != 0 {
		t.Fatal("empty string must score 0")
	}
	high := DiceCoefficient("RIVERSIDE STATION", "RIVERSIDE STN")
	low := DiceCoefficient("RIVERSIDE STATION", "HARBORVIEW DEPOT")
	if high <= low {
		t.Fatalf("high=%v low=%v", high, low)
	}
}
