package scripting

import (
	"github.com/dop251/goja"

	"github.com/MJE43/moonrock-orbs/internal/game"
)

func injectConstants(vm *goja.Runtime) {
	vm.Set("START", game.StartGame.String())
	vm.Set("PULL", game.PullOrb.String())
	vm.Set("CASH_OUT", game.CashOut.String())
	vm.Set("SHOP", game.EnterShop.String())
	vm.Set("BUY", game.BuyOrb.String())
	vm.Set("NEXT", game.GoToNextLevel.String())
}

// Variables is the state a strategy sees on each decide() call. Only Slot is
// written back from the script.
type Variables struct {
	Run             int                      `json:"run"`
	Phase           string                   `json:"phase"`
	Level           uint32                   `json:"level"`
	Points          uint32                   `json:"points"`
	Milestone       uint32                   `json:"milestone"`
	HP              uint32                   `json:"hp"`
	MaxHP           uint32                   `json:"maxhp"`
	Multiplier      float64                  `json:"multiplier"`
	GlitchChips     uint32                   `json:"glitchchips"`
	MoonrocksSpent  uint32                   `json:"moonrocksspent"`
	MoonrocksEarned uint32                   `json:"moonrocksearned"`
	Remaining       int                      `json:"remaining"`
	Balance         int64                    `json:"balance"`
	Offers          []map[string]interface{} `json:"offers"`
	LastPull        string                   `json:"lastpull"`

	// Slot is the 0-based offer index used when decide() returns BUY.
	Slot int `json:"slot"`
}

// VariablesFor builds the strategy view of m's current state.
func VariablesFor(run int, m *game.Machine) *Variables {
	snap := m.Snapshot()
	vars := &Variables{
		Run:    run,
		Phase:  snap.Phase.String(),
		Offers: []map[string]interface{}{},
	}
	if e, ok := m.LastPull(); ok {
		vars.LastPull = e.String()
	}
	if snap.Run == nil {
		return vars
	}
	r := snap.Run
	vars.Level = r.Level
	vars.Points = r.Points
	vars.Milestone = r.Milestone
	vars.HP = r.HP
	vars.MaxHP = r.MaxHP
	vars.Multiplier = r.Multiplier
	vars.GlitchChips = r.GlitchChips
	vars.MoonrocksSpent = r.MoonrocksSpent
	vars.MoonrocksEarned = r.MoonrocksEarned
	vars.Remaining = r.Remaining()
	vars.Balance = r.Balance()
	for i, o := range r.Offers() {
		vars.Offers = append(vars.Offers, map[string]interface{}{
			"slot":   i,
			"effect": o.Effect.String(),
			"rarity": o.Rarity.String(),
			"price":  o.Buyable.CurrentPrice,
			"count":  o.Count,
		})
	}
	return vars
}

func injectVariables(vm *goja.Runtime, vars *Variables) {
	vm.Set("run", vars.Run)
	vm.Set("phase", vars.Phase)
	vm.Set("level", vars.Level)
	vm.Set("points", vars.Points)
	vm.Set("milestone", vars.Milestone)
	vm.Set("hp", vars.HP)
	vm.Set("maxhp", vars.MaxHP)
	vm.Set("multiplier", vars.Multiplier)
	vm.Set("glitchchips", vars.GlitchChips)
	vm.Set("moonrocksspent", vars.MoonrocksSpent)
	vm.Set("moonrocksearned", vars.MoonrocksEarned)
	vm.Set("remaining", vars.Remaining)
	vm.Set("balance", vars.Balance)
	vm.Set("offers", vars.Offers)
	vm.Set("lastpull", vars.LastPull)
	vm.Set("slot", vars.Slot)
}

func syncFromVM(vm *goja.Runtime, vars *Variables) {
	vars.Slot = toInt(vm.Get("slot"))
}

func toInt(v goja.Value) int {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return int(v.ToInteger())
}
