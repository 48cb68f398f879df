package similarity

import "fmt"

type Strategy string

const (
	KeepNewer   Strategy = "keep-newer"
	KeepOlder   Strategy = "keep-older"
	KeepBoth    Strategy = "keep-both"
	KeepNeither Strategy = "keep-neither"
)

var Strategies = []Strategy{KeepNewer, KeepOlder, KeepBoth, KeepNeither}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid removeStrategy %q, must be one of %v", s, Strategies)
}

// ResolvePair returns the ids to remove from one duplicate pair. Equal
// creation times count idea1 as the older record.
func ResolvePair(p Pair, strategy Strategy) []string {
	older, newer := p.Idea1, p.Idea2
	if p.Idea2.CreatedAt.Before(p.Idea1.CreatedAt) {
		older, newer = p.Idea2, p.Idea1
	}

	switch strategy {
	case KeepNewer:
		return []string{older.ID}
	case KeepOlder:
		return []string{newer.ID}
	case KeepNeither:
		return []string{p.Idea1.ID, p.Idea2.ID}
	default:
		return nil
	}
}

// RecordsToRemove returns the union of ids flagged across all pairs, in
// first-flagged order.
func RecordsToRemove(pairs []Pair, strategy Strategy) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, p := range pairs {
		for _, id := range ResolvePair(p, strategy) {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
