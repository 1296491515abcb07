package fifo

import "sort"

// LotLedger holds one FIFO queue of lots per (product, location) key.
// Queues change only by tail append and head remove-or-decrement; they are
// never reordered. The ledger is owned by a single Engine per run and is not
// safe for concurrent mutation.
// 商品×ロケーションごとのFIFOロットキューを保持する台帳
type LotLedger struct {
	queues map[LedgerKey][]*Lot // キーごとのロットキュー（先頭が最古）
}

// NewLotLedger creates an empty ledger
// 空の台帳を作成
func NewLotLedger() *LotLedger {
	return &LotLedger{
		queues: make(map[LedgerKey][]*Lot),
	}
}

// Enqueue appends a lot to the tail of the queue for key, creating the queue
// if absent
// キーのキュー末尾にロットを追加（キューがなければ作成）
func (l *LotLedger) Enqueue(key LedgerKey, lot Lot) {
	l.queues[key] = append(l.queues[key], &lot)
}

// DequeueUpTo consumes up to quantity units from the head of the queue for
// key, oldest lot first. A head lot whose remaining quantity fits the
// still-unsatisfied request is removed whole; otherwise it is split in place
// and stays at the head. Returns one LotMatch per touched lot (holding a
// snapshot of the lot taken before the split) and the unmet deficit when the
// queue empties first. The queue is never left with a negative lot.
// キュー先頭から最大quantity個を古い順に消費し、マッチ結果と不足数量を返す
func (l *LotLedger) DequeueUpTo(key LedgerKey, quantity int64) ([]LotMatch, int64) {
	if quantity <= 0 {
		return nil, 0
	}

	var matches []LotMatch
	remaining := quantity
	queue := l.queues[key]

	for remaining > 0 && len(queue) > 0 {
		head := queue[0]

		matched := head.Remaining
		if matched > remaining {
			matched = remaining
		}

		snapshot := *head

		head.Remaining -= matched
		remaining -= matched
		if head.Remaining == 0 {
			// ロットを完全消費したので破棄
			queue = queue[1:]
		}

		matches = append(matches, LotMatch{Lot: snapshot, Quantity: matched})
	}

	if len(queue) == 0 {
		delete(l.queues, key)
	} else {
		l.queues[key] = queue
	}

	return matches, remaining
}

// Snapshot returns a read-only copy of the remaining lots for key in queue
// order (oldest first)
// キーの残存ロットをキュー順（最古順）でコピーして返す
func (l *LotLedger) Snapshot(key LedgerKey) []Lot {
	queue, ok := l.queues[key]
	if !ok {
		return nil
	}

	lots := make([]Lot, len(queue))
	for i, lot := range queue {
		lots[i] = *lot
	}
	return lots
}

// SnapshotAll returns read-only copies of all non-empty queues
// すべての非空キューのコピーを返す
func (l *LotLedger) SnapshotAll() map[LedgerKey][]Lot {
	all := make(map[LedgerKey][]Lot, len(l.queues))
	for key := range l.queues {
		all[key] = l.Snapshot(key)
	}
	return all
}

// Keys returns all keys with remaining stock in canonical order
// 残在庫のあるキーを正規順序で返す
func (l *LotLedger) Keys() []LedgerKey {
	keys := make([]LedgerKey, 0, len(l.queues))
	for key := range l.queues {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].less(keys[j])
	})
	return keys
}

// TotalQuantity returns the sum of remaining lot quantities for key
// キーの残存ロット数量の合計を返す
func (l *LotLedger) TotalQuantity(key LedgerKey) int64 {
	var total int64
	for _, lot := range l.queues[key] {
		total += lot.Remaining
	}
	return total
}
