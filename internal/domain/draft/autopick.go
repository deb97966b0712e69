package draft

import "sort"

// AvailableAssets returns assets not referenced by any filled pick, ranked
// best first.
func AvailableAssets(assets []Asset, picks []Pick) []Asset {
	drafted := DraftedAssets(picks)
	out := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if _, taken := drafted[a.ID]; taken {
			continue
		}
		out = append(out, a)
	}
	RankAssets(out)
	return out
}

// RankAssets orders by ProjectedPoints descending, then asset id ascending so
// equal metrics always resolve the same way.
func RankAssets(assets []Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].ProjectedPoints != assets[j].ProjectedPoints {
			return assets[i].ProjectedPoints > assets[j].ProjectedPoints
		}
		return assets[i].ID < assets[j].ID
	})
}

func SelectBestAvailable(assets []Asset, picks []Pick) (Asset, bool) {
	available := AvailableAssets(assets, picks)
	if len(available) == 0 {
		return Asset{}, false
	}
	return available[0], true
}
