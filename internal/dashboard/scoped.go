package dashboard

import (
	"fmt"
	"strings"
)

// ScopedDecision 是一条记录收窄到单个交易对后的视图。
type ScopedDecision struct {
	ID        string          `json:"id"`
	Index     int             `json:"index"`
	Symbol    string          `json:"symbol"`
	SymbolKey string          `json:"symbol_key"`
	Action    Action          `json:"action"`
	Decision  *DecisionBlock  `json:"decision,omitempty"`
	Execution *ExecutionBlock `json:"execution,omitempty"`
}

// ScopedDecisions normalises the two historical record shapes into one entry per traded symbol.
// It always returns at least one entry and never two entries with the same symbol key.
func ScopedDecisions(rec Record) []ScopedDecision {
	decisions := dedupDecisions(rec.Decisions)
	executions := dedupExecutions(rec.Executions)
	legacy := len(decisions) <= 1

	var out []ScopedDecision
	switch {
	case len(decisions) > 0:
		claimed := make([]bool, len(executions))
		paired := make([]*ExecutionBlock, len(decisions))
		for i := range decisions {
			paired[i] = claimBySymbol(NormalizeSymbol(decisions[i].Symbol), executions, claimed)
		}
		for i := range decisions {
			if paired[i] == nil {
				paired[i] = claimByPosition(i, NormalizeSymbol(decisions[i].Symbol), executions, claimed)
			}
			out = appendUnique(out, newScoped(rec, &decisions[i], paired[i], legacy))
		}
		// Unpaired executions for symbols without a decision still get a view.
		for i := range executions {
			if claimed[i] || NormalizeSymbol(executions[i].Symbol) == "" {
				continue
			}
			out = appendUnique(out, newScoped(rec, nil, &executions[i], false))
		}
	case len(executions) > 0:
		for i := range executions {
			out = appendUnique(out, newScoped(rec, nil, &executions[i], len(executions) == 1))
		}
	default:
		out = append(out, newScoped(rec, nil, nil, true))
	}

	for i := range out {
		out[i].Index = i
		out[i].ID = scopedID(rec, out[i])
	}
	return out
}

func claimBySymbol(key string, executions []ExecutionBlock, claimed []bool) *ExecutionBlock {
	if key == "" {
		return nil
	}
	for j := range executions {
		if !claimed[j] && NormalizeSymbol(executions[j].Symbol) == key {
			claimed[j] = true
			return &executions[j]
		}
	}
	return nil
}

// claimByPosition pairs the i-th decision with the i-th execution unless both name different symbols.
func claimByPosition(i int, key string, executions []ExecutionBlock, claimed []bool) *ExecutionBlock {
	if i >= len(executions) || claimed[i] {
		return nil
	}
	execKey := NormalizeSymbol(executions[i].Symbol)
	if key != "" && execKey != "" && execKey != key {
		return nil
	}
	claimed[i] = true
	return &executions[i]
}

func newScoped(rec Record, dec *DecisionBlock, exec *ExecutionBlock, useRecordSymbol bool) ScopedDecision {
	symbol := ""
	if dec != nil {
		symbol = dec.Symbol
	}
	if symbol == "" && exec != nil {
		symbol = exec.Symbol
	}
	if symbol == "" && useRecordSymbol {
		symbol = rec.Symbol
	}
	return ScopedDecision{
		Symbol:    symbol,
		SymbolKey: NormalizeSymbol(symbol),
		Action:    ResolveAction(dec, exec),
		Decision:  dec,
		Execution: exec,
	}
}

// appendUnique keeps the one-entry-per-symbol-key invariant; the first entry for a key wins.
func appendUnique(list []ScopedDecision, sd ScopedDecision) []ScopedDecision {
	for _, existing := range list {
		if existing.SymbolKey == sd.SymbolKey {
			return list
		}
	}
	return append(list, sd)
}

func scopedID(rec Record, sd ScopedDecision) string {
	ts := rec.TimestampRaw
	if rec.HasTimestamp {
		ts = rec.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")
	}
	symbol := sd.SymbolKey
	if symbol == "" {
		symbol = "-"
	}
	return fmt.Sprintf("%s|%s|%s|%d", ts, symbol, sd.Action, sd.Index)
}

// dedupDecisions keeps the first block per symbol key.
func dedupDecisions(blocks []DecisionBlock) []DecisionBlock {
	if len(blocks) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(blocks))
	out := make([]DecisionBlock, 0, len(blocks))
	for _, b := range blocks {
		key := NormalizeSymbol(b.Symbol)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// dedupExecutions drops exact repeats; distinct executions may share a symbol.
func dedupExecutions(blocks []ExecutionBlock) []ExecutionBlock {
	if len(blocks) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(blocks))
	out := make([]ExecutionBlock, 0, len(blocks))
	for _, b := range blocks {
		key := executionKey(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

func executionKey(b ExecutionBlock) string {
	return strings.Join([]string{
		NormalizeSymbol(b.Symbol),
		string(ResolveAction(nil, &b)),
		strings.ToUpper(strings.TrimSpace(b.Status)),
		nullString(b.Qty),
		nullString(b.Notional),
	}, "|")
}
