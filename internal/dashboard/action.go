package dashboard

import (
	"strings"
	"unicode"
)

// Action 是归一化后的交易动作，只有三种取值。
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

var (
	buyMarkers  = []string{"BUY", "ACHAT", "OPEN"}
	sellMarkers = []string{"SELL", "VENTE", "CLOSE"}
	// fillMarkers flag an execution status as a fill even without quantity evidence.
	fillMarkers = []string{"FILLED", "EXEC", "BUY", "SELL"}
)

// NormalizeAction classifies free-form producer text by substring. Anything unrecognised,
// including empty text, is HOLD.
func NormalizeAction(raw string) Action {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return ActionHold
	}
	if containsAny(value, buyMarkers) {
		return ActionBuy
	}
	if containsAny(value, sellMarkers) {
		return ActionSell
	}
	return ActionHold
}

// NormalizeSymbol returns the matching key of a trading pair: letters and digits only, upper case.
func NormalizeSymbol(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// ResolveAction picks the action of a decision/execution pair. Either block may be nil.
func ResolveAction(dec *DecisionBlock, exec *ExecutionBlock) Action {
	var candidates []string
	if dec != nil {
		candidates = append(candidates, dec.ActionFR, dec.Action)
	}
	if exec != nil {
		candidates = append(candidates, exec.ActionFR, exec.Action, exec.StatusFR, exec.Status)
	}
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return NormalizeAction(c)
		}
	}
	return ActionHold
}

func isFillStatus(status string) bool {
	return containsAny(strings.ToUpper(status), fillMarkers)
}

func containsAny(value string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(value, m) {
			return true
		}
	}
	return false
}
