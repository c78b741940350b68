package command

import (
	"errors"
	"strings"
	"testing"

	"github.com/MJE43/moonrock-orbs/internal/game"
)

func TestParseActions(t *testing.T) {
	p := NewParser(nil)

	tests := []struct {
		input string
		want  game.Action
	}{
		{"start", game.Action{Kind: game.StartGame}},
		{"  New  ", game.Action{Kind: game.StartGame}},
		{"pull", game.Action{Kind: game.PullOrb}},
		{"P", game.Action{Kind: game.PullOrb}},
		{"pul", game.Action{Kind: game.PullOrb}},
		{"cash out", game.Action{Kind: game.CashOut}},
		{"cash-out", game.Action{Kind: game.CashOut}},
		{"cashout", game.Action{Kind: game.CashOut}},
		{"shop", game.Action{Kind: game.EnterShop}},
		{"shp", game.Action{Kind: game.EnterShop}},
		{"enter shop", game.Action{Kind: game.EnterShop}},
		{"buy 1", game.Buy(0)},
		{"BUY 3", game.Buy(2)},
		{"b 6", game.Buy(5)},
		{"buy2", game.Buy(1)},
		{"next", game.Action{Kind: game.GoToNextLevel}},
		{"nxt", game.Action{Kind: game.GoToNextLevel}},
		{"continue", game.Action{Kind: game.GoToNextLevel}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := p.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if !cmd.IsAction {
				t.Fatalf("expected action for %q, got verb %q", tt.input, cmd.Verb)
			}
			if cmd.Action != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, cmd.Action, tt.want)
			}
		})
	}
}

func TestParseConsoleVerbs(t *testing.T) {
	p := NewParser(nil)

	tests := map[string]string{
		"help":   "help",
		"?":      "help",
		"st":     "status",
		"offers": "offers",
		"o":      "offers",
		"bag":    "bag",
		"verify": "seeds",
		"q":      "quit",
		"exit":   "quit",
	}
	for input, verb := range tests {
		cmd, err := p.Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if cmd.IsAction {
			t.Errorf("expected console verb for %q, got action %v", input, cmd.Action)
		}
		if cmd.Verb != verb {
			t.Errorf("expected %q verb, got %q", verb, cmd.Verb)
		}
	}
}

func TestParseErrors(t *testing.T) {
	p := NewParser(nil)

	if _, err := p.Parse("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := p.Parse("buy"); !errors.Is(err, ErrMissingSlot) {
		t.Errorf("expected ErrMissingSlot, got %v", err)
	}
	for _, in := range []string{"buy 0", "buy x"} {
		if _, err := p.Parse(in); !errors.Is(err, ErrBadSlot) {
			t.Errorf("%q: expected ErrBadSlot, got %v", in, err)
		}
	}

	var unknown *UnknownError
	if _, err := p.Parse("dance wildly"); !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownError, got %v", err)
	}

	var ambiguous *AmbiguousError
	_, err := p.Parse("sta")
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousError, got %v", err)
	}
	if len(ambiguous.Options) != 2 {
		t.Errorf("expected two options, got %v", ambiguous.Options)
	}
}

func TestUnknownSuggests(t *testing.T) {
	p := NewParser(nil)

	_, err := p.Parse("pu")
	if err == nil {
		// "pu" is a prefix of pull and purchase; either way it must not silently pass
		t.Fatal("expected an error for an ambiguous prefix")
	}

	_, err = p.Parse("hepl")
	var unknown *UnknownError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownError, got %v", err)
	}
	found := false
	for _, s := range unknown.Suggestions {
		if s == "help" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected help among suggestions, got %v", unknown.Suggestions)
	}
}

func TestHelpListsEveryVerb(t *testing.T) {
	p := NewParser(nil)
	help := p.Help()
	for _, v := range DefaultRegistry().Verbs() {
		if !strings.Contains(help, v) {
			t.Errorf("help is missing %q", v)
		}
	}
	if !strings.Contains(help, "buy <slot>") {
		t.Error("help should show the buy slot argument")
	}
}
