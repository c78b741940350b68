// Package orbplay is a line-oriented console for playing one run locally.
package orbplay

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/MJE43/moonrock-orbs/internal/command"
	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
	"github.com/MJE43/moonrock-orbs/internal/replay"
)

// Config holds the run's fairness inputs. Empty seeds are generated.
type Config struct {
	ServerSeed string
	ClientSeed string
	Nonce      uint64
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{Nonce: 1}
	fs.StringVar(&cfg.ServerSeed, "server-seed", "", "server seed (random when empty)")
	fs.StringVar(&cfg.ClientSeed, "client-seed", "", "client seed (random when empty)")
	fs.Uint64Var(&cfg.Nonce, "nonce", cfg.Nonce, "nonce")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type console struct {
	out     io.Writer
	seeds   engine.Seeds
	nonce   uint64
	machine *game.Machine
	parser  *command.Parser
	actions []game.Action
}

// Run reads commands from in until quit or EOF.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if cfg.ServerSeed == "" {
		seed, err := engine.NewServerSeed()
		if err != nil {
			return fmt.Errorf("generate server seed: %w", err)
		}
		cfg.ServerSeed = seed
	}
	if cfg.ClientSeed == "" {
		cfg.ClientSeed = uuid.NewString()
	}
	if cfg.Nonce == 0 {
		return errors.New("nonce must be >= 1")
	}

	c := &console{
		out:    out,
		seeds:  engine.Seeds{Server: cfg.ServerSeed, Client: cfg.ClientSeed},
		nonce:  cfg.Nonce,
		parser: command.NewParser(nil),
	}
	c.machine = game.NewMachine(engine.NewStream(c.seeds, c.nonce))

	fmt.Fprintf(out, "moonrock orbs  server seed hash %s  client seed %s  nonce %d\n",
		engine.HashSeed(c.seeds.Server), c.seeds.Client, c.nonce)
	fmt.Fprintln(out, "type \"start\" to begin, \"help\" for commands")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if quit := c.handle(scanner.Text()); quit {
			return nil
		}
	}
}

func (c *console) handle(line string) bool {
	cmd, err := c.parser.Parse(line)
	if errors.Is(err, command.ErrEmpty) {
		return false
	}
	if err != nil {
		fmt.Fprintf(c.out, "? %v\n", err)
		return false
	}

	if cmd.IsAction {
		c.perform(cmd.Action)
		return false
	}

	switch cmd.Verb {
	case "help":
		fmt.Fprint(c.out, c.parser.Help())
	case "status":
		fmt.Fprintln(c.out, StateLine(c.machine.State()))
	case "offers":
		c.printOffers()
	case "bag":
		c.printBag()
	case "seeds":
		c.printSeeds()
	case "quit":
		return true
	}
	return false
}

func (c *console) perform(a game.Action) {
	c.actions = append(c.actions, a)
	if err := c.machine.Perform(a); err != nil {
		var ae *game.ActionError
		if errors.As(err, &ae) {
			fmt.Fprintf(c.out, "! %v\n", ae.Err)
		} else {
			fmt.Fprintf(c.out, "! %v\n", err)
		}
		return
	}
	if e, ok := c.machine.LastPull(); ok && a.Kind == game.PullOrb {
		fmt.Fprintf(c.out, "pulled %s\n", e)
	}
	fmt.Fprintln(c.out, StateLine(c.machine.State()))

	switch c.machine.State().(type) {
	case game.Shop:
		c.printOffers()
	case game.Complete:
		fmt.Fprintln(c.out, "run over; \"seeds\" reveals the server seed")
	}
}

// StateLine renders g on one line.
func StateLine(g game.Game) string {
	switch s := g.(type) {
	case game.New:
		return "not started"
	case game.Level:
		return runLine("level", s.Run)
	case game.Shop:
		return runLine("shop", s.Run)
	case game.Complete:
		return fmt.Sprintf("complete: %s at level %d, moonrocks %+d", s.Reason, s.Level, s.MoonrockDelta)
	default:
		return fmt.Sprintf("unknown state %T", g)
	}
}

func runLine(phase string, r game.RunState) string {
	return fmt.Sprintf("[%s %d] points %d/%d  hp %d/%d  x%.2f  chips %d  moonrocks %d  left %d",
		phase, r.Level, r.Points, r.Milestone, r.HP, r.MaxHP, r.Multiplier, r.GlitchChips, r.Balance(), r.Remaining())
}

func (c *console) printOffers() {
	shop, ok := c.machine.State().(game.Shop)
	if !ok {
		fmt.Fprintln(c.out, "the shop is closed")
		return
	}
	offers := shop.Run.Offers()
	if len(offers) == 0 {
		fmt.Fprintln(c.out, "nothing for sale")
		return
	}
	for i, o := range offers {
		fmt.Fprintln(c.out, offerLine(i, o))
	}
}

// offerLine renders slot i (0-based) as typed by the player. Prices are
// paid from the moonrock balance.
func offerLine(i int, o orbs.Orb) string {
	return fmt.Sprintf("  %d) %-24s %-9s %3d moonrocks", i+1, o.Effect, o.Rarity, o.Buyable.CurrentPrice)
}

func (c *console) printBag() {
	var r game.RunState
	switch s := c.machine.State().(type) {
	case game.Level:
		r = s.Run
	case game.Shop:
		r = s.Run
	default:
		fmt.Fprintln(c.out, "no bag outside a run")
		return
	}
	counts := map[string]int{}
	for _, e := range r.PullableOrbEffects {
		counts[e.String()]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(c.out, "  %2d x %s\n", counts[n], n)
	}
}

// printSeeds shows the fairness inputs. The server seed is shown only once
// the run is complete, together with a replay check of every action typed.
func (c *console) printSeeds() {
	fmt.Fprintf(c.out, "server seed hash  %s\nclient seed       %s\nnonce             %d\n",
		engine.HashSeed(c.seeds.Server), c.seeds.Client, c.nonce)
	if _, done := c.machine.State().(game.Complete); !done {
		fmt.Fprintln(c.out, "server seed is revealed when the run is complete")
		return
	}
	fmt.Fprintf(c.out, "server seed       %s\n", c.seeds.Server)

	m, _ := replay.Run(c.seeds, c.nonce, c.actions)
	if StateLine(m.State()) == StateLine(c.machine.State()) {
		fmt.Fprintf(c.out, "replay of %d actions: verified\n", len(c.actions))
	} else {
		fmt.Fprintf(c.out, "replay of %d actions: MISMATCH (%s)\n", len(c.actions), strings.TrimSpace(StateLine(m.State())))
	}
}
