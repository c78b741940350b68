// Package command turns typed player input into game actions and console
// verbs, tolerating aliases, prefixes and small typos.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MJE43/moonrock-orbs/internal/game"
)

var (
	ErrEmpty       = errors.New("empty command")
	ErrMissingSlot = errors.New("buy needs a slot number")
	ErrBadSlot     = errors.New("slot must be a positive number")
)

// UnknownError reports input that matched no verb well enough.
type UnknownError struct {
	Input       string
	Suggestions []string
}

func (e *UnknownError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown command %q", e.Input)
	}
	return fmt.Sprintf("unknown command %q, did you mean %s?", e.Input, strings.Join(e.Suggestions, " or "))
}

// AmbiguousError reports input that matched several verbs equally well.
type AmbiguousError struct {
	Input   string
	Options []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%q could be %s", e.Input, strings.Join(e.Options, " or "))
}

// Command is one parsed line. Action is set only when IsAction is true;
// otherwise Verb names a console verb such as "help" or "quit".
type Command struct {
	Raw        string
	Verb       string
	Args       []string
	IsAction   bool
	Action     game.Action
	Confidence float64
}

var actionVerbs = map[string]game.ActionKind{
	"start":    game.StartGame,
	"pull":     game.PullOrb,
	"cash out": game.CashOut,
	"shop":     game.EnterShop,
	"buy":      game.BuyOrb,
	"next":     game.GoToNextLevel,
}

// Parser resolves input against a Registry.
type Parser struct {
	reg *Registry
}

// NewParser returns a parser over reg, or over DefaultRegistry when reg is nil.
func NewParser(reg *Registry) *Parser {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Parser{reg: reg}
}

// Parse resolves raw. Shop slots are typed 1-based and stored 0-based.
func (p *Parser) Parse(raw string) (Command, error) {
	norm := normalise(raw)
	tokens := tokenise(norm)
	if len(tokens) == 0 {
		return Command{Raw: raw}, ErrEmpty
	}

	// "buy2" and "b2" style input.
	if len(tokens) == 1 {
		if verb, num, ok := splitTrailingNumber(tokens[0]); ok {
			tokens = []string{verb, num}
		}
	}

	best, alts := p.reg.match(tokens)
	if best.canonical == "" || best.score < 0.5 {
		return Command{Raw: raw}, &UnknownError{Input: norm, Suggestions: p.reg.suggest(tokens[0])}
	}
	if best.source != "exact" && best.source != "alias" {
		for _, a := range alts {
			if best.score-a.score < 0.05 {
				return Command{Raw: raw}, &AmbiguousError{Input: norm, Options: []string{best.canonical, a.canonical}}
			}
		}
	}

	cmd := Command{
		Raw:        raw,
		Verb:       best.canonical,
		Args:       tokens[best.consumed:],
		Confidence: best.score,
	}
	kind, ok := actionVerbs[cmd.Verb]
	if !ok {
		return cmd, nil
	}
	cmd.IsAction = true
	cmd.Action = game.Action{Kind: kind}

	if def, _ := p.reg.def(cmd.Verb); def.TakesSlot {
		if len(cmd.Args) == 0 {
			return cmd, ErrMissingSlot
		}
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil || n < 1 {
			return cmd, ErrBadSlot
		}
		cmd.Action.Slot = n - 1
	}
	return cmd, nil
}

func splitTrailingNumber(tok string) (string, string, bool) {
	i := len(tok)
	for i > 0 && tok[i-1] >= '0' && tok[i-1] <= '9' {
		i--
	}
	if i == 0 || i == len(tok) {
		return "", "", false
	}
	return tok[:i], tok[i:], true
}

// Help lists verbs with their aliases, one per line.
func (p *Parser) Help() string {
	var b strings.Builder
	for _, v := range p.reg.Verbs() {
		d, _ := p.reg.def(v)
		b.WriteString(v)
		if d.TakesSlot {
			b.WriteString(" <slot>")
		}
		if len(d.Aliases) > 0 {
			b.WriteString("  (" + strings.Join(d.Aliases, ", ") + ")")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
