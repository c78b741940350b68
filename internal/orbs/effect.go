package orbs

import (
	"fmt"
	"strconv"
)

// EffectKind tags the payload carried by an Effect.
type EffectKind int

const (
	KindPoint EffectKind = iota
	KindPointPerOrbRemaining
	KindPointPerBombPulled
	KindGlitchChips
	KindMoonrocks
	KindHealth
	KindBomb
	KindMultiplier
	KindPointRewind
	KindFiveOrDie
	KindBombImmunity
)

var kindNames = map[EffectKind]string{
	KindPoint:                "point",
	KindPointPerOrbRemaining: "point_per_orb_remaining",
	KindPointPerBombPulled:   "point_per_bomb_pulled",
	KindGlitchChips:          "glitch_chips",
	KindMoonrocks:            "moonrocks",
	KindHealth:               "health",
	KindBomb:                 "bomb",
	KindMultiplier:           "multiplier",
	KindPointRewind:          "point_rewind",
	KindFiveOrDie:            "five_or_die",
	KindBombImmunity:         "bomb_immunity",
}

// String returns the snake_case wire name of the kind.
func (k EffectKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// MarshalText implements encoding.TextMarshaler.
func (k EffectKind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown effect kind %d", int(k))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EffectKind) UnmarshalText(text []byte) error {
	for kind, name := range kindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown effect kind %q", string(text))
}

// Effect is the payload an orb applies when pulled. Amount is used by the
// unsigned kinds, Delta only by KindMultiplier, and the remaining kinds
// carry nothing.
type Effect struct {
	Kind   EffectKind `json:"kind"`
	Amount uint32     `json:"amount,omitempty"`
	Delta  float64    `json:"delta,omitempty"`
}

func Point(n uint32) Effect                { return Effect{Kind: KindPoint, Amount: n} }
func PointPerOrbRemaining(n uint32) Effect { return Effect{Kind: KindPointPerOrbRemaining, Amount: n} }
func PointPerBombPulled(n uint32) Effect   { return Effect{Kind: KindPointPerBombPulled, Amount: n} }
func GlitchChips(n uint32) Effect          { return Effect{Kind: KindGlitchChips, Amount: n} }
func Moonrocks(n uint32) Effect            { return Effect{Kind: KindMoonrocks, Amount: n} }
func Health(n uint32) Effect               { return Effect{Kind: KindHealth, Amount: n} }
func Bomb(n uint32) Effect                 { return Effect{Kind: KindBomb, Amount: n} }
func Multiplier(x float64) Effect          { return Effect{Kind: KindMultiplier, Delta: x} }
func PointRewind() Effect                  { return Effect{Kind: KindPointRewind} }
func FiveOrDie() Effect                    { return Effect{Kind: KindFiveOrDie} }
func BombImmunity() Effect                 { return Effect{Kind: KindBombImmunity} }

// IsBomb reports whether the effect deals bomb damage.
func (e Effect) IsBomb() bool { return e.Kind == KindBomb }

// ScoresPoints reports whether the effect adds points when resolved.
func (e Effect) ScoresPoints() bool {
	switch e.Kind {
	case KindPoint, KindPointPerOrbRemaining, KindPointPerBombPulled:
		return true
	default:
		return false
	}
}

// String renders the effect the way the CLI shows it, e.g. "Bomb(2)".
func (e Effect) String() string {
	switch e.Kind {
	case KindPoint:
		return fmt.Sprintf("Point(%d)", e.Amount)
	case KindPointPerOrbRemaining:
		return fmt.Sprintf("PointPerOrbRemaining(%d)", e.Amount)
	case KindPointPerBombPulled:
		return fmt.Sprintf("PointPerBombPulled(%d)", e.Amount)
	case KindGlitchChips:
		return fmt.Sprintf("GlitchChips(%d)", e.Amount)
	case KindMoonrocks:
		return fmt.Sprintf("Moonrocks(%d)", e.Amount)
	case KindHealth:
		return fmt.Sprintf("Health(%d)", e.Amount)
	case KindBomb:
		return fmt.Sprintf("Bomb(%d)", e.Amount)
	case KindMultiplier:
		return "Multiplier(+" + strconv.FormatFloat(e.Delta, 'f', -1, 64) + ")"
	case KindPointRewind:
		return "PointRewind"
	case KindFiveOrDie:
		return "FiveOrDie"
	case KindBombImmunity:
		return "BombImmunity"
	default:
		return e.Kind.String()
	}
}
