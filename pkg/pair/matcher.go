// Package pair correlates two same-transaction log streams into matched
// event pairs. Matching is pure: no I/O, no state beyond the call.
package pair

import "sort"

// Log is the minimal view of a chain event the matcher needs.
type Log interface {
	EventTxHash() string
	EventLogIndex() uint32
}

// Side tells a diagnostic callback which stream an unmatched event came from.
type Side string

const (
	SideLeading    Side = "leading"
	SideCorrelated Side = "correlated"
)

// Unmatched describes an event left without a partner. Incomplete pairs
// are reported for alerting, never treated as an error: the rest of the
// batch proceeds.
type Unmatched struct {
	Side     Side
	TxHash   string
	LogIndex uint32
}

// Pair is one matched (leading, correlated) tuple within a transaction.
type Pair[L Log, C Log] struct {
	Leading    L
	Correlated C
}

// Match groups both collections by transaction hash and, within each
// transaction, assigns every leading event the nearest unconsumed
// correlated event with a strictly smaller log index. Each correlated
// event is consumed at most once.
//
// The ordering rule encodes the on-chain invariant that the correlated
// log is always emitted before the leading log it belongs to. Both
// collections are sorted by log index first, so the output is identical
// for identical input regardless of input order.
func Match[L Log, C Log](leading []L, correlated []C, onUnmatched func(Unmatched)) []Pair[L, C] {
	if onUnmatched == nil {
		onUnmatched = func(Unmatched) {}
	}

	byTx := make(map[string]*txGroup[L, C])
	txOrder := make([]string, 0)
	group := func(tx string) *txGroup[L, C] {
		g, ok := byTx[tx]
		if !ok {
			g = &txGroup[L, C]{}
			byTx[tx] = g
			txOrder = append(txOrder, tx)
		}
		return g
	}
	for _, l := range leading {
		g := group(l.EventTxHash())
		g.leading = append(g.leading, l)
	}
	for _, c := range correlated {
		g := group(c.EventTxHash())
		g.correlated = append(g.correlated, c)
	}
	sort.Strings(txOrder)

	var pairs []Pair[L, C]
	for _, tx := range txOrder {
		g := byTx[tx]
		sort.SliceStable(g.leading, func(i, j int) bool {
			return g.leading[i].EventLogIndex() < g.leading[j].EventLogIndex()
		})
		sort.SliceStable(g.correlated, func(i, j int) bool {
			return g.correlated[i].EventLogIndex() < g.correlated[j].EventLogIndex()
		})

		consumed := make(map[int]bool, len(g.correlated))
		for _, l := range g.leading {
			best := -1
			for i, c := range g.correlated {
				if c.EventLogIndex() >= l.EventLogIndex() {
					break
				}
				if !consumed[i] {
					best = i
				}
			}
			if best < 0 {
				onUnmatched(Unmatched{Side: SideLeading, TxHash: tx, LogIndex: l.EventLogIndex()})
				continue
			}
			consumed[best] = true
			pairs = append(pairs, Pair[L, C]{Leading: l, Correlated: g.correlated[best]})
		}
		for i, c := range g.correlated {
			if !consumed[i] {
				onUnmatched(Unmatched{Side: SideCorrelated, TxHash: tx, LogIndex: c.EventLogIndex()})
			}
		}
	}
	return pairs
}

type txGroup[L Log, C Log] struct {
	leading    []L
	correlated []C
}
