package orbplay

import (
	"bytes"
	"context"
	"flag"
	"strings"
	"testing"

	"github.com/MJE43/moonrock-orbs/internal/engine"
	"github.com/MJE43/moonrock-orbs/internal/game"
	"github.com/MJE43/moonrock-orbs/internal/orbs"
)

var testConfig = Config{ServerSeed: "play-server", ClientSeed: "play-client", Nonce: 2}

func play(t *testing.T, cfg Config, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("orbplay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Nonce != 1 || cfg.ServerSeed != "" || cfg.ClientSeed != "" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestConsoleStartAndStatus(t *testing.T) {
	out := play(t, testConfig, "status\nstart\nst\nbag\nseeds\nquit\n")

	for _, want := range []string{
		engine.HashSeed("play-server"),
		"not started",
		"[level 1] points 0/",
		"server seed is revealed when the run is complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "server seed       play-server") {
		t.Error("server seed leaked before the run completed")
	}
}

func TestConsoleRejectionsAndTypos(t *testing.T) {
	out := play(t, testConfig, "next\nstart\nbuy 1\nfrobnicate\n")

	if !strings.Contains(out, "! "+game.ErrInvalidActionInNewGame.Error()) {
		t.Errorf("expected rejection before start:\n%s", out)
	}
	if !strings.Contains(out, `? unknown command "frobnicate"`) {
		t.Errorf("expected unknown command message:\n%s", out)
	}
}

func TestConsolePlaysToCompletionAndVerifies(t *testing.T) {
	input := "start\n" + strings.Repeat("pull\ncash out\n", 60) + "seeds\n"
	out := play(t, testConfig, input)

	if !strings.Contains(out, "complete: ") {
		t.Fatalf("run did not complete:\n%s", out)
	}
	if !strings.Contains(out, "server seed       play-server") {
		t.Errorf("expected server seed reveal:\n%s", out)
	}
	if !strings.Contains(out, "verified") {
		t.Errorf("expected replay verification:\n%s", out)
	}
}

func TestStateLineComplete(t *testing.T) {
	got := StateLine(game.Complete{MoonrockDelta: -3, Reason: game.EndDeath, Level: 2})
	if got != "complete: death at level 2, moonrocks -3" {
		t.Fatalf("unexpected line %q", got)
	}
}

func TestOfferLinePricesInMoonrocks(t *testing.T) {
	o := orbs.Orb{Effect: orbs.Point(7), Rarity: orbs.Rare, Count: 1, Buyable: orbs.BuyableAt(9)}
	got := offerLine(0, o)
	if !strings.HasPrefix(got, "  1) ") || !strings.HasSuffix(got, "  9 moonrocks") {
		t.Fatalf("unexpected offer line %q", got)
	}
	if strings.Contains(got, "chips") {
		t.Errorf("offer priced in chips: %q", got)
	}
}
