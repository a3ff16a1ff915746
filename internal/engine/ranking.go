package engine

import (
	"cmp"
	"slices"
)

type RankingEntry struct {
	AthleteID      string  `json:"athlete_id"`
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	WeightCategory string  `json:"weight_category"`
	StartNumber    int     `json:"start_number"`
	BodyWeight     float64 `json:"body_weight"`
	BestSnatch     int     `json:"best_snatch"`
	BestCleanJerk  int     `json:"best_clean_and_jerk"`
	Total          int     `json:"total"`
	Rank           *int    `json:"rank"`
	Medal          Medal   `json:"medal,omitempty"`
	Disqualified   bool    `json:"is_disqualified"`
}

// Rankings maps weight category to its entries in display order: ranked
// athletes by rank, then athletes without a total, then disqualified athletes.
type Rankings map[string][]RankingEntry

// ByAthlete flattens r into athlete id -> entry.
func (r Rankings) ByAthlete() map[string]RankingEntry {
	out := make(map[string]RankingEntry)
	for _, entries := range r {
		for _, e := range entries {
			out[e.AthleteID] = e
		}
	}
	return out
}

// ComputeRankings recomputes every weight category from scratch.
func ComputeRankings(athletes []Athlete, ledger *Ledger) Rankings {
	out := Rankings{}
	for _, a := range athletes {
		e := RankingEntry{
			AthleteID:      a.ID,
			Name:           a.Name,
			Country:        a.Country,
			WeightCategory: a.WeightCategory,
			StartNumber:    a.StartNumber,
			BodyWeight:     a.BodyWeight,
			BestSnatch:     ledger.BestGood(a.ID, LiftSnatch),
			BestCleanJerk:  ledger.BestGood(a.ID, LiftCleanJerk),
			Medal:          a.Medal,
			Disqualified:   a.Disqualified,
		}
		if e.BestSnatch > 0 && e.BestCleanJerk > 0 {
			e.Total = e.BestSnatch + e.BestCleanJerk
		}
		key := categoryKey(out, a.WeightCategory)
		out[key] = append(out[key], e)
	}

	for cat, entries := range out {
		slices.SortFunc(entries, compareEntries)
		rank := 0
		for i := range entries {
			if entries[i].Disqualified || entries[i].Total == 0 {
				continue
			}
			rank++
			r := rank
			entries[i].Rank = &r
		}
		out[cat] = entries
	}
	return out
}

// categoryKey reuses an existing label that differs only by case.
func categoryKey(r Rankings, label string) string {
	for k := range r {
		if SameCategory(k, label) {
			return k
		}
	}
	return label
}

func standing(e RankingEntry) int {
	switch {
	case e.Disqualified:
		return 2
	case e.Total == 0:
		return 1
	}
	return 0
}

// compareEntries orders by total desc, lighter body weight, then start number.
func compareEntries(a, b RankingEntry) int {
	if c := standing(a) - standing(b); c != 0 {
		return c
	}
	if standing(a) == 0 {
		if c := cmp.Compare(b.Total, a.Total); c != 0 {
			return c
		}
		if c := cmp.Compare(a.BodyWeight, b.BodyWeight); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(a.StartNumber, b.StartNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.AthleteID, b.AthleteID)
}

type MedalCount struct {
	Country string `json:"country"`
	Gold    int    `json:"gold"`
	Silver  int    `json:"silver"`
	Bronze  int    `json:"bronze"`
}

// MedalTable tallies the manually assigned medals per country.
func MedalTable(athletes []Athlete) []MedalCount {
	idx := map[string]int{}
	var out []MedalCount
	for _, a := range athletes {
		if a.Medal == MedalNone {
			continue
		}
		i, ok := idx[a.Country]
		if !ok {
			i = len(out)
			idx[a.Country] = i
			out = append(out, MedalCount{Country: a.Country})
		}
		switch a.Medal {
		case MedalGold:
			out[i].Gold++
		case MedalSilver:
			out[i].Silver++
		case MedalBronze:
			out[i].Bronze++
		}
	}
	slices.SortFunc(out, func(a, b MedalCount) int {
		if c := cmp.Compare(b.Gold, a.Gold); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Silver, a.Silver); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Bronze, a.Bronze); c != 0 {
			return c
		}
		return cmp.Compare(a.Country, b.Country)
	})
	return out
}
