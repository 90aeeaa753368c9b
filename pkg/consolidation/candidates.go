package consolidation

import (
	"context"
	"sort"

	"github.com/Ramsey-B/sorrel/pkg/features"
	"github.com/Ramsey-B/sorrel/pkg/matching"
	"github.com/Ramsey-B/sorrel/pkg/models"
	"github.com/Ramsey-B/sorrel/pkg/tracing"
)

// Filter thresholds.
const (
	ShortGenericMaxTokens  = 2
	ShortGenericMinJaccard = 0.85
	SubsetMinJaccard       = 0.80
	MaxAmountRatio         = 3.0
	MinJaccard             = 0.72
	DefaultMaxPosting      = 150
)

type Verdict int

const (
	Undecided Verdict = iota
	Yes
	No
)

func (v Verdict) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "undecided"
	}
}

// DealBreakerKeywords mark a variant when present on only one side.
var DealBreakerKeywords = features.NewTokenSet(
	"אורגני", "דיאט", "לייט", "ללא סוכר", "טבעוני", "צמחוני", "ללא גלוטן", `לל"ס`,
	"קפוא", "טרי", "מעושן", "מיובש", "מצונן", "מבושל", "חי",
	"חריף", "עדין", "פיקנטי", "מתוק",
)

// ConflictPairs are mutually exclusive keywords: two names hitting different
// members of one set are different products.
var ConflictPairs = []features.TokenSet{
	// types
	features.NewTokenSet("שמפו", "מרכך"), features.NewTokenSet("שמפו", "מסיכה"),
	features.NewTokenSet("קרם יום", "קרם לילה"), features.NewTokenSet("סרום", "קרם"),
	features.NewTokenSet("אדפ", "אדט"), features.NewTokenSet("בושם", "דאודורנט"),
	features.NewTokenSet("נוזל", "אבקה"), features.NewTokenSet("נוזל", "גל"),
	features.NewTokenSet("גל", "קרם"), features.NewTokenSet("תרסיס", "קרם"),
	// flavors and scents
	features.NewTokenSet("לימון", "תפוז"), features.NewTokenSet("לימון", "לבנדר"),
	features.NewTokenSet("תות", "בננה"), features.NewTokenSet("וניל", "שוקולד"),
	features.NewTokenSet("עוף", "בקר"), features.NewTokenSet("פיצה", "ברביקיו"),
	features.NewTokenSet("אפרסק", "מנגו"),
	// food types
	features.NewTokenSet("מרלו", "קברנה"), features.NewTokenSet("מרלו", "שיראז"),
	features.NewTokenSet("קברנה", "שיראז"), features.NewTokenSet("אדום", "לבן"),
	features.NewTokenSet("יבש", "חצי יבש"), features.NewTokenSet("קמח לבן", "קמח מלא"),
	features.NewTokenSet("חיטה", "כוסמין"), features.NewTokenSet("רגיל", "מלא"),
	// meats and cuts
	features.NewTokenSet("כרעיים", "כנפיים"), features.NewTokenSet("חזה", "שוק"),
	features.NewTokenSet("בקר", "טלה"), features.NewTokenSet("פילה", "סטייק"),
	features.NewTokenSet("טחון", "קוביות"), features.NewTokenSet("אסאדו", "אנטריקוט"),
	// tools
	features.NewTokenSet("כף", "מזלג"), features.NewTokenSet("כף", "סכין"),
	features.NewTokenSet("מזלג", "סכין"),
	// gender and age
	features.NewTokenSet("בנים", "בנות"), features.NewTokenSet("גבר", "אישה"),
	features.NewTokenSet("גברים", "נשים"), features.NewTokenSet("תינוק", "מבוגר"),
	// materials and forms
	features.NewTokenSet("טחון", "שלם"), features.NewTokenSet("פרוס", "גוש"),
	features.NewTokenSet("זכוכית", "פלסטיק"), features.NewTokenSet("קרטון", "בקבוק"),
	features.NewTokenSet("כותנה", "סינטטי"),
	// colors
	features.NewTokenSet("שחור", "לבן"), features.NewTokenSet("אדום", "כחול"),
	features.NewTokenSet("ירוק", "צהוב"),
}

// NameFeatures are the comparison features of one product name. Pack sizes
// are parsed out and removed before tokenizing.
type NameFeatures struct {
	Tokens      features.TokenSet
	Quantity    features.Quantity
	HasQuantity bool
}

func FeaturesOf(name string) NameFeatures {
	q, ok := features.ParseQuantity(name)
	return NameFeatures{
		Tokens:      features.Extract(features.StripQuantities(name)),
		Quantity:    q,
		HasQuantity: ok,
	}
}

// Classify runs the automatic filters in order; the first one that decides wins.
func Classify(a, b NameFeatures, brandKeywords features.TokenSet) Verdict {
	score := matching.Jaccard(a.Tokens, b.Tokens)

	if a.Tokens.Minus(brandKeywords).Len() <= ShortGenericMaxTokens &&
		b.Tokens.Minus(brandKeywords).Len() <= ShortGenericMaxTokens &&
		score < ShortGenericMinJaccard {
		return No
	}

	if score > SubsetMinJaccard && (a.Tokens.SubsetOf(b.Tokens) || b.Tokens.SubsetOf(a.Tokens)) {
		return Yes
	}

	if a.HasQuantity && b.HasQuantity && a.Quantity.Ratio(b.Quantity) > MaxAmountRatio {
		return No
	}

	for _, conflict := range ConflictPairs {
		aHits, bHits := a.Tokens.Intersect(conflict), b.Tokens.Intersect(conflict)
		if aHits.Len() > 0 && bHits.Len() > 0 && !aHits.Equal(bHits) {
			return No
		}
	}

	if !a.Tokens.Intersect(DealBreakerKeywords).Equal(b.Tokens.Intersect(DealBreakerKeywords)) {
		return No
	}

	if score < MinJaccard {
		return No
	}
	return Undecided
}

type FinderOptions struct {
	// MaxPosting excludes tokens shared by this many products or more.
	MaxPosting    int
	BrandKeywords features.TokenSet
}

type FinderStats struct {
	Products  int `json:"products"`
	Tokens    int `json:"tokens"`
	Pairs     int `json:"pairs"`
	Yes       int `json:"yes"`
	No        int `json:"no"`
	Undecided int `json:"undecided"`
	Groups    int `json:"groups"`
}

type Analysis struct {
	Groups []ReviewGroup
	Stats  FinderStats
}

// Analyze blocks products by shared tokens, classifies each candidate pair and
// joins the accepted pairs into connected components. Groups are numbered from
// 1 in order of their lowest product id.
func Analyze(products []models.CanonicalProduct, opts FinderOptions) Analysis {
	if opts.MaxPosting <= 0 {
		opts.MaxPosting = DefaultMaxPosting
	}
	if opts.BrandKeywords == nil {
		opts.BrandKeywords = features.NewTokenSet(matching.DefaultBrandKeywords...)
	}

	sorted := append([]models.CanonicalProduct(nil), products...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	byID := make(map[int64]models.CanonicalProduct, len(sorted))
	feats := make(map[int64]NameFeatures, len(sorted))
	postings := make(map[string][]int64)
	for _, p := range sorted {
		byID[p.ID] = p
		f := FeaturesOf(p.DisplayName)
		feats[p.ID] = f
		for t := range f.Tokens {
			postings[t] = append(postings[t], p.ID)
		}
	}

	pairSet := make(map[[2]int64]struct{})
	for _, ids := range postings {
		if len(ids) < 2 || len(ids) >= opts.MaxPosting {
			continue
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				pairSet[[2]int64{ids[i], ids[j]}] = struct{}{}
			}
		}
	}
	pairs := make([][2]int64, 0, len(pairSet))
	for p := range pairSet {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	stats := FinderStats{Products: len(sorted), Tokens: len(postings), Pairs: len(pairs)}
	uf := newUnionFind()
	for _, p := range pairs {
		switch Classify(feats[p[0]], feats[p[1]], opts.BrandKeywords) {
		case Yes:
			stats.Yes++
			uf.union(p[0], p[1])
		case No:
			stats.No++
		default:
			stats.Undecided++
		}
	}

	components := uf.components()
	groups := make([]ReviewGroup, len(components))
	for i, ids := range components {
		members := make([]Member, len(ids))
		for j, id := range ids {
			members[j] = Member{ProductID: id, DisplayName: byID[id].DisplayName}
		}
		groups[i] = ReviewGroup{ID: int64(i + 1), Members: members}
	}
	stats.Groups = len(groups)
	return Analysis{Groups: groups, Stats: stats}
}

// FindCandidates analyzes the current canonical products and returns review groups.
func (s *Service) FindCandidates(ctx context.Context, opts FinderOptions) ([]ReviewGroup, error) {
	ctx, span := tracing.StartSpan(ctx, "consolidation.Service.FindCandidates")
	defer span.End()

	products, err := s.catalog.Products().ListCanonical(ctx)
	if err != nil {
		return nil, tracing.RecordError(span, err)
	}

	analysis := Analyze(products, opts)
	s.log.WithContext(ctx).WithFields(map[string]any{
		"products":  analysis.Stats.Products,
		"pairs":     analysis.Stats.Pairs,
		"yes":       analysis.Stats.Yes,
		"no":        analysis.Stats.No,
		"undecided": analysis.Stats.Undecided,
		"groups":    analysis.Stats.Groups,
	}).Info("Found duplicate candidates")
	return analysis.Groups, nil
}

type unionFind struct {
	parent map[int64]int64
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[int64]int64)}
}

func (u *unionFind) find(x int64) int64 {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
	}
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the lower id as root.
func (u *unionFind) union(a, b int64) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

// components returns each set ascending, ordered by lowest member.
func (u *unionFind) components() [][]int64 {
	byRoot := make(map[int64][]int64)
	for x := range u.parent {
		r := u.find(x)
		byRoot[r] = append(byRoot[r], x)
	}
	out := make([][]int64, 0, len(byRoot))
	for _, ids := range byRoot {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
