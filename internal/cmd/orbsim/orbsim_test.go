package orbsim

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const strategy = `
	log("strategy loaded")
	decide = function() {
		if (phase === "new") {
			return START
		}
		return points > 0 ? CASH_OUT : PULL
	}
`

func writeScript(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.js")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestParseConfig(t *testing.T) {
	fs := flag.NewFlagSet("orbsim", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-runs", "7", "s.js"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Script != "s.js" || cfg.Runs != 7 || cfg.Nonce != 1 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := ParseConfig(flag.NewFlagSet("orbsim", flag.ContinueOnError), nil); err == nil {
		t.Fatal("expected error without a script")
	}
}

func TestRunText(t *testing.T) {
	cfg := Config{Script: writeScript(t, strategy), Runs: 5, Seed: "sim-seed", ClientSeed: "c", Nonce: 1, Verbose: true}
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"seed sim-seed", "runs 5", "run    0 nonce 1", "strategy loaded"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output:\n%s", want, text)
		}
	}
}

func TestRunJSON(t *testing.T) {
	cfg := Config{Script: writeScript(t, strategy), Runs: 3, Seed: "json-seed", ClientSeed: "c", Nonce: 10, JSON: true}
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	var got struct {
		Seed   string `json:"seed"`
		Report struct {
			Stats struct {
				Runs int `json:"runs"`
			} `json:"stats"`
			Results []struct {
				Nonce uint64 `json:"nonce"`
			} `json:"results"`
		} `json:"report"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.Seed != "json-seed" || got.Report.Stats.Runs != 3 {
		t.Fatalf("unexpected report %+v", got)
	}
	if got.Report.Results[0].Nonce != 10 {
		t.Fatalf("expected first nonce 10, got %d", got.Report.Results[0].Nonce)
	}
}

func TestRunMissingScript(t *testing.T) {
	err := Run(context.Background(), Config{Script: filepath.Join(t.TempDir(), "none.js"), Runs: 1}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "read script") {
		t.Fatalf("expected read error, got %v", err)
	}
}
