package sqlite

import "github.com/munechika-koyo/smartdoor/internal/smartdoor/types"

func typesAction(s string) types.Action {
	return types.Action(s)
}

func typesLockState(s string) types.LockPosition {
	if s == "unlocked" {
		return types.Unlocked
	}
	return types.Locked
}
