// Package contracts holds the shared types and closed enums of the engine.
// SSOT: 跨模块类型只在这里定义。
package contracts

import (
	"fmt"
	"strings"
)

// Level is the funnel tier that produced a signal. Priority is strictly
// L1 > L2 > L3 > NONE.
type Level string

const (
	LevelL1   Level = "L1"
	LevelL2   Level = "L2"
	LevelL3   Level = "L3"
	LevelNone Level = "NONE"
)

// ParseLevel rejects unrecognized values instead of defaulting.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelL1, LevelL2, LevelL3, LevelNone:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Light is the operator-facing traffic light.
type Light string

const (
	LightRed    Light = "red"
	LightYellow Light = "yellow"
	LightGreen  Light = "green"
	LightGrey   Light = "grey"
)

// ParseLight rejects unrecognized values instead of defaulting.
func ParseLight(s string) (Light, error) {
	switch Light(s) {
	case LightRed, LightYellow, LightGreen, LightGrey:
		return Light(s), nil
	}
	return "", fmt.Errorf("unknown light %q", s)
}

// Action is the prescribed position action.
type Action string

const (
	ActionForceEmpty    Action = "force_empty"
	ActionExitAll       Action = "exit_all"
	ActionReduceExit    Action = "reduce_exit"
	ActionProbeEntry    Action = "probe_entry"
	ActionObserve       Action = "observe"
	ActionNormalTrading Action = "normal_trading"
	ActionInactive      Action = "inactive"
)

// ParseAction rejects unrecognized values instead of defaulting.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionForceEmpty, ActionExitAll, ActionReduceExit,
		ActionProbeEntry, ActionObserve, ActionNormalTrading, ActionInactive:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Verdict is the guard's ruling on a provisional entry.
type Verdict string

const (
	VerdictPass      Verdict = "pass"
	VerdictBlock     Verdict = "block"
	VerdictDowngrade Verdict = "downgrade"
)

// ParseVerdict rejects unrecognized values instead of defaulting.
func ParseVerdict(s string) (Verdict, error) {
	switch Verdict(s) {
	case VerdictPass, VerdictBlock, VerdictDowngrade:
		return Verdict(s), nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// Board classifies a listing venue; the risk scanner branches on it.
type Board string

const (
	BoardMain    Board = "main"    // 主板
	BoardChiNext Board = "chinext" // 创业板
	BoardStar    Board = "star"    // 科创板
	BoardBSE     Board = "bse"     // 北交所
)

// ParseBoard rejects unrecognized values instead of defaulting.
func ParseBoard(s string) (Board, error) {
	switch Board(s) {
	case BoardMain, BoardChiNext, BoardStar, BoardBSE:
		return Board(s), nil
	}
	return "", fmt.Errorf("unknown board %q", s)
}

// BoardForCode classifies a stock code by prefix. Exchange suffixes like
// ".SZ" are ignored.
func BoardForCode(code string) Board {
	code = strings.ToUpper(strings.TrimSpace(code))
	if i := strings.Index(code, "."); i >= 0 {
		code = code[:i]
	}
	switch {
	case strings.HasPrefix(code, "300"), strings.HasPrefix(code, "301"):
		return BoardChiNext
	case strings.HasPrefix(code, "688"), strings.HasPrefix(code, "689"):
		return BoardStar
	case strings.HasPrefix(code, "4"), strings.HasPrefix(code, "8"):
		return BoardBSE
	}
	return BoardMain
}
