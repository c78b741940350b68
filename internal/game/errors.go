package game

import (
	"errors"
	"fmt"
)

// Rejections. All of them leave the game untouched.
var (
	ErrInvalidActionInNewGame = errors.New("action not allowed before the game starts")
	ErrInvalidActionInLevel   = errors.New("action not allowed during a level")
	ErrInvalidActionInShop    = errors.New("action not allowed in the shop")
	ErrGameOver               = errors.New("game is over")
	ErrNoPointsToCashOut      = errors.New("no points to cash out")
	ErrMilestoneNotMetYet     = errors.New("milestone not met yet")
	ErrEmptyPullPool          = errors.New("no orbs left to pull this level")
	ErrInsufficientFunds      = errors.New("insufficient moonrocks")
	ErrOrbNotForSale          = errors.New("no orb offered in that slot")
)

// ActionError records which action was rejected in which phase. Use
// errors.Is against the sentinels above to classify it.
type ActionError struct {
	Action Action
	Phase  Phase
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s rejected in %s: %v", e.Action, e.Phase, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func reject(g Game, a Action, err error) error {
	return &ActionError{Action: a, Phase: g.Phase(), Err: err}
}
