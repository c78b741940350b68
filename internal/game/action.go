package game

import (
	"fmt"
	"strconv"
)

// ActionKind is the closed vocabulary of player intents.
type ActionKind int

const (
	StartGame ActionKind = iota
	PullOrb
	CashOut
	EnterShop
	BuyOrb
	GoToNextLevel
)

var actionNames = [...]string{
	StartGame:     "start_game",
	PullOrb:       "pull_orb",
	CashOut:       "cash_out",
	EnterShop:     "enter_shop",
	BuyOrb:        "buy_orb",
	GoToNextLevel: "go_to_next_level",
}

// ActionKinds lists every action kind.
var ActionKinds = []ActionKind{StartGame, PullOrb, CashOut, EnterShop, BuyOrb, GoToNextLevel}

func (k ActionKind) String() string {
	if k >= 0 && int(k) < len(actionNames) {
		return actionNames[k]
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (k ActionKind) MarshalText() ([]byte, error) {
	if k < 0 || int(k) >= len(actionNames) {
		return nil, fmt.Errorf("unknown action %d", int(k))
	}
	return []byte(actionNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, err := ParseActionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseActionKind resolves a wire name such as "pull_orb".
func ParseActionKind(name string) (ActionKind, error) {
	for i, n := range actionNames {
		if n == name {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}

// Action is one player intent. Slot is only read by BuyOrb and indexes the
// shop's sale offer.
type Action struct {
	Kind ActionKind `json:"action"`
	Slot int        `json:"slot,omitempty"`
}

// Buy returns a BuyOrb action for the given sale slot.
func Buy(slot int) Action { return Action{Kind: BuyOrb, Slot: slot} }

func (a Action) String() string {
	if a.Kind == BuyOrb {
		return fmt.Sprintf("%s[%d]", a.Kind, a.Slot)
	}
	return a.Kind.String()
}
