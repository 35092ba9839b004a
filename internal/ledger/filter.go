package ledger

import (
	"time"

	"github.com/hitoshi/bankmock/internal/model"
)

// DateRange は取引一覧の日付範囲フィルタ。
// nilの境界は適用しない。両端とも境界日を含む。
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// ParseDateRange はクエリ文字列の start, end を YYYY-MM-DD として解釈する。
// 空文字や解釈できない値はエラーにせず、その境界を未指定として扱う。
func ParseDateRange(start, end string) DateRange {
	return DateRange{
		Start: parseDate(start),
		End:   parseDate(end),
	}
}

// IsZero は境界が1つも指定されていないかどうかを返す。
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// Contains は日付が範囲内にあるかどうかを返す。
func (r DateRange) Contains(date time.Time) bool {
	if r.Start != nil && date.Before(*r.Start) {
		return false
	}
	if r.End != nil && date.After(*r.End) {
		return false
	}
	return true
}

// Apply は範囲内の取引だけを元の順序のまま新しいスライスで返す。
// 境界が指定されている場合、日付を解釈できない取引は除外する。
func (r DateRange) Apply(txns []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	if r.IsZero() {
		return append(out, txns...)
	}

	for _, txn := range txns {
		date := parseDate(txn.Date)
		if date == nil || !r.Contains(*date) {
			continue
		}
		out = append(out, txn)
	}
	return out
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil
	}
	return &t
}
