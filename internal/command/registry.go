package command

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Def describes one command verb and the phrases that invoke it.
type Def struct {
	Canonical string
	Aliases   []string
	// TakesSlot marks verbs that need a shop slot argument.
	TakesSlot bool
}

type phrase struct {
	canonical string
	alias     string
	tokens    []string
}

// Registry holds the known verbs.
type Registry struct {
	defs    map[string]Def
	order   []string
	phrases []phrase
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Def)}
}

// Register adds d. Later registrations of the same canonical name replace
// its definition but keep earlier phrases.
func (r *Registry) Register(d Def) {
	d.Canonical = normalise(d.Canonical)
	if d.Canonical == "" {
		return
	}
	if _, ok := r.defs[d.Canonical]; !ok {
		r.order = append(r.order, d.Canonical)
	}
	r.defs[d.Canonical] = d

	r.phrases = append(r.phrases, phrase{canonical: d.Canonical, alias: d.Canonical, tokens: tokenise(d.Canonical)})
	for _, a := range d.Aliases {
		n := normalise(a)
		if n == "" {
			continue
		}
		r.phrases = append(r.phrases, phrase{canonical: d.Canonical, alias: n, tokens: tokenise(n)})
	}
}

// Verbs lists canonical verbs in registration order.
func (r *Registry) Verbs() []string {
	return append([]string(nil), r.order...)
}

func (r *Registry) def(canonical string) (Def, bool) {
	d, ok := r.defs[canonical]
	return d, ok
}

type candidate struct {
	canonical string
	consumed  int
	score     float64
	source    string
}

func (r *Registry) match(tokens []string) (candidate, []candidate) {
	if len(tokens) == 0 {
		return candidate{}, nil
	}
	cands := make([]candidate, 0, len(r.phrases))
	for _, p := range r.phrases {
		if len(p.tokens) == 0 || len(p.tokens) > len(tokens) {
			continue
		}
		n := len(p.tokens)
		head := strings.Join(tokens[:n], " ")

		if head == p.alias {
			score, source := 1.0, "exact"
			if p.alias != p.canonical {
				score, source = 0.97, "alias"
			}
			cands = append(cands, candidate{canonical: p.canonical, consumed: n, score: score, source: source})
			continue
		}

		if n == 1 && len(tokens[0]) >= 2 && strings.HasPrefix(p.alias, tokens[0]) {
			cands = append(cands, candidate{canonical: p.canonical, consumed: 1, score: 0.9, source: "prefix"})
			continue
		}

		if len(head) < 3 {
			continue
		}
		dist := levenshtein.ComputeDistance(head, p.alias)
		if dist > levenshteinLimit(len(p.alias)) {
			continue
		}
		score := 0.72 - 0.08*float64(dist)
		if p.alias != p.canonical {
			score += 0.03
		}
		cands = append(cands, candidate{canonical: p.canonical, consumed: n, score: score, source: "lev"})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score == cands[j].score {
			if cands[i].consumed == cands[j].consumed {
				return cands[i].canonical < cands[j].canonical
			}
			return cands[i].consumed > cands[j].consumed
		}
		return cands[i].score > cands[j].score
	})

	if len(cands) == 0 {
		return candidate{}, nil
	}
	best := cands[0]
	alts := make([]candidate, 0, 3)
	seen := map[string]bool{best.canonical: true}
	for _, c := range cands[1:] {
		if seen[c.canonical] {
			continue
		}
		seen[c.canonical] = true
		alts = append(alts, c)
		if len(alts) >= 3 {
			break
		}
	}
	return best, alts
}

// suggest returns verbs whose phrases are close to word, best first.
func (r *Registry) suggest(word string) []string {
	type scored struct {
		verb string
		dist int
	}
	best := map[string]int{}
	for _, p := range r.phrases {
		d := levenshtein.ComputeDistance(word, p.alias)
		if d > levenshteinLimit(len(p.alias))+1 {
			continue
		}
		if cur, ok := best[p.canonical]; !ok || d < cur {
			best[p.canonical] = d
		}
	}
	list := make([]scored, 0, len(best))
	for v, d := range best {
		list = append(list, scored{v, d})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dist == list[j].dist {
			return list[i].verb < list[j].verb
		}
		return list[i].dist < list[j].dist
	})
	out := make([]string, 0, 3)
	for _, s := range list {
		out = append(out, s.verb)
		if len(out) == 3 {
			break
		}
	}
	return out
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// DefaultRegistry knows the run actions plus the interactive meta verbs.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	defs := []Def{
		{Canonical: "start", Aliases: []string{"new", "begin", "play", "start game"}},
		{Canonical: "pull", Aliases: []string{"p", "draw", "pull orb"}},
		{Canonical: "cash out", Aliases: []string{"cashout", "c", "bank"}},
		{Canonical: "shop", Aliases: []string{"enter shop", "store"}},
		{Canonical: "buy", Aliases: []string{"b", "purchase", "buy orb"}, TakesSlot: true},
		{Canonical: "next", Aliases: []string{"n", "next level", "continue", "leave shop"}},

		{Canonical: "help", Aliases: []string{"h", "?", "commands"}},
		{Canonical: "status", Aliases: []string{"st", "state", "stats"}},
		{Canonical: "offers", Aliases: []string{"o", "offer", "wares"}},
		{Canonical: "bag", Aliases: []string{"pool", "orbs", "remaining"}},
		{Canonical: "seeds", Aliases: []string{"verify", "fairness"}},
		{Canonical: "quit", Aliases: []string{"q", "exit", "bye"}},
	}
	for _, d := range defs {
		r.Register(d)
	}
	return r
}
