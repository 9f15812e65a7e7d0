// Package competition implements the Competition Analyzer (C7): applicant
// normalization, market concentration metrics (HHI/CR4/CR8/Gini), applicant
// typing, emerging-applicant detection, competitor similarity, and temporal
// competition snapshots.
package competition

import (
	"regexp"
	"sort"
	"strings"

	"github.com/patentlens/kernel/internal/patent"
)

const (
	minDataPoints = 3
	topNForSimilarity = 10
	recentYears       = 3
)

var suffixSet = []string{
	"有限公司", "股份有限公司", "Inc.", "LLC", "Corporation", "Corp.", "Ltd.",
	"Co.", "Company", "Limited", "GmbH", "S.A.", "N.V.",
}

var punctuationPattern = regexp.MustCompile(`[^\p{Han}\w\s]`)

// NormalizeApplicant trims whitespace, strips common corporate suffixes,
// removes punctuation (except CJK/word characters), and collapses internal
// whitespace (spec §4.7).
func NormalizeApplicant(name string) string {
	name = strings.TrimSpace(name)

	for _, suffix := range suffixSet {
		name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
	}

	name = punctuationPattern.ReplaceAllString(name, "")

	return strings.Join(strings.Fields(name), " ")
}

// Analyzer runs competition analysis over patent records.
type Analyzer struct {
	typeKeywords map[string][]string
}

// New creates a competition Analyzer with the default applicant-type
// keyword lists.
func New() *Analyzer {
	return &Analyzer{typeKeywords: defaultTypeKeywords()}
}

func defaultTypeKeywords() map[string][]string {
	return map[string][]string{
		"university":          {"university", "大学", "学院"},
		"research_institute":  {"institute", "研究院", "研究所", "academy"},
		"conglomerate":        {"group", "holdings", "集团"},
		"tech_company":        {"technology", "tech", "科技", "软件", "software"},
		"manufacturer":        {"manufacturing", "制造", "industries", "industrial"},
		"foreign_entity":      {"gmbh", "s.a.", "n.v.", "ltd", "inc"},
	}
}

// Analyze computes the full CompetitionResult for records.
func (a *Analyzer) Analyze(records []patent.Record) *patent.CompetitionResult {
	if len(records) < minDataPoints {
		return &patent.CompetitionResult{
			DataPointCount: len(records),
			Issues:         []string{"fewer than 3 data points"},
			Insufficient:   true,
		}
	}

	counts, yearsByApplicant, ipcByApplicant, countriesByApplicant := aggregate(records)

	applicantCounts := sortedApplicantCounts(counts)

	shares := computeShares(applicantCounts)
	hhi := hhiOf(shares)
	cr4 := concentrationRatio(shares, 4)
	cr8 := concentrationRatio(shares, 8)
	gini := giniOf(applicantCounts)

	result := &patent.CompetitionResult{
		ApplicantCounts:    applicantCounts,
		HHI:                hhi,
		CR4:                cr4,
		CR8:                cr8,
		Gini:               gini,
		ConcentrationLevel: concentrationLevel(hhi, cr4),
		ApplicantTypes:     a.classifyApplicants(applicantCounts),
		ActivityScores:     activityScores(applicantCounts, yearsByApplicant, countriesByApplicant, ipcByApplicant),
		Emerging:           emergingApplicants(records),
		Competitors:        competitorPairs(applicantCounts, ipcByApplicant),
		Temporal:           temporalCompetition(records),
		LeaderHistory:      leaderHistory(records),
		DataPointCount:     len(records),
	}

	return result
}

func aggregate(records []patent.Record) (counts map[string]int, years map[string]map[int]bool, ipcs map[string]map[string]bool, countries map[string]map[string]bool) {
	counts = make(map[string]int)
	years = make(map[string]map[int]bool)
	ipcs = make(map[string]map[string]bool)
	countries = make(map[string]map[string]bool)

	for _, rec := range records {
		year, hasYear := rec.Year()

		for _, raw := range rec.Applicants {
			name := NormalizeApplicant(raw)
			if name == "" {
				continue
			}

			counts[name]++

			if hasYear {
				if years[name] == nil {
					years[name] = make(map[int]bool)
				}

				years[name][year] = true
			}

			if ipcs[name] == nil {
				ipcs[name] = make(map[string]bool)
			}

			for _, ipc := range rec.IPCClasses {
				if prefix := ipcPrefix(ipc); prefix != "" {
					ipcs[name][prefix] = true
				}
			}

			if countries[name] == nil {
				countries[name] = make(map[string]bool)
			}

			if rec.Country != "" {
				countries[name][rec.Country] = true
			}
		}
	}

	return counts, years, ipcs, countries
}

func ipcPrefix(ipc string) string {
	ipc = strings.TrimSpace(ipc)
	if len(ipc) < 4 {
		return ipc
	}

	return ipc[:4]
}

func sortedApplicantCounts(counts map[string]int) []patent.ApplicantCount {
	out := make([]patent.ApplicantCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, patent.ApplicantCount{Applicant: name, Count: c})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Applicant < out[j].Applicant
	})

	return out
}

func computeShares(counts []patent.ApplicantCount) []float64 {
	total := 0

	for _, c := range counts {
		total += c.Count
	}

	if total == 0 {
		return nil
	}

	shares := make([]float64, len(counts))
	for i, c := range counts {
		shares[i] = float64(c.Count) / float64(total)
	}

	return shares
}

// hhiOf computes the Herfindahl-Hirschman Index, bounded to [1/n, 1]
// (invariant 6).
func hhiOf(shares []float64) float64 {
	var sum float64
	for _, s := range shares {
		sum += s * s
	}

	return sum
}

func concentrationRatio(shares []float64, n int) float64 {
	if n > len(shares) {
		n = len(shares)
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += shares[i]
	}

	return sum
}

// giniOf computes the Gini coefficient over sorted applicant counts,
// bounded to [0, 1].
func giniOf(counts []patent.ApplicantCount) float64 {
	n := len(counts)
	if n == 0 {
		return 0
	}

	vals := make([]float64, n)
	for i, c := range counts {
		vals[i] = float64(c.Count)
	}

	sort.Float64s(vals)

	var cumulative, total float64

	for i, v := range vals {
		cumulative += float64(i+1) * v
		total += v
	}

	if total == 0 {
		return 0
	}

	return (2*cumulative)/(float64(n)*total) - float64(n+1)/float64(n)
}

func concentrationLevel(hhi, cr4 float64) string {
	switch {
	case hhi > 0.25 || cr4 > 0.6:
		return "高度集中"
	case hhi > 0.15 || cr4 > 0.4:
		return "中度集中"
	case hhi > 0.1 || cr4 > 0.25:
		return "适度集中"
	default:
		return "竞争充分"
	}
}

func (a *Analyzer) classifyApplicants(counts []patent.ApplicantCount) map[string]string {
	out := make(map[string]string, len(counts))

	for _, c := range counts {
		out[c.Applicant] = a.classifyOne(c.Applicant)
	}

	return out
}

// classifyOne matches against the type keyword lists in a fixed priority
// order; the first list a name matches wins.
func (a *Analyzer) classifyOne(name string) string {
	lower := strings.ToLower(name)

	order := []string{"university", "research_institute", "conglomerate", "foreign_entity", "tech_company", "manufacturer"}

	for _, typ := range order {
		for _, kw := range a.typeKeywords[typ] {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return typ
			}
		}
	}

	return "other"
}

func activityScores(counts []patent.ApplicantCount, years map[string]map[int]bool, countries, ipcs map[string]map[string]bool) map[string]float64 {
	out := make(map[string]float64, len(counts))

	for _, c := range counts {
		countScore := minFloat(float64(c.Count)/100, 1)
		yearScore := minFloat(float64(len(years[c.Applicant]))/10, 1)
		countryScore := minFloat(float64(len(countries[c.Applicant]))/5, 1)
		techScore := minFloat(float64(len(ipcs[c.Applicant]))/10, 1)

		out[c.Applicant] = (0.4*countScore + 0.3*yearScore + 0.15*countryScore + 0.15*techScore) * 100
	}

	return out
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}

	return b
}

// emergingApplicants flags applicants whose recent (last 3 years) activity
// outpaces their early activity (spec §4.7).
func emergingApplicants(records []patent.Record) []patent.EmergingApplicant {
	maxYear := 0

	for _, rec := range records {
		if y, ok := rec.Year(); ok && y > maxYear {
			maxYear = y
		}
	}

	if maxYear == 0 {
		return nil
	}

	recentCutoff := maxYear - recentYears + 1

	recent := make(map[string]int)
	early := make(map[string]int)

	for _, rec := range records {
		year, ok := rec.Year()
		if !ok {
			continue
		}

		for _, raw := range rec.Applicants {
			name := NormalizeApplicant(raw)
			if name == "" {
				continue
			}

			if year >= recentCutoff {
				recent[name]++
			} else {
				early[name]++
			}
		}
	}

	var out []patent.EmergingApplicant

	names := make([]string, 0, len(recent))
	for name := range recent {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		r := recent[name]
		e := early[name]

		if r < 3 {
			continue
		}

		if !(e == 0 || r > 2*e) {
			continue
		}

		base := e
		if base == 0 {
			base = 1
		}

		growth := float64(r-e) / float64(base) * 100

		typ := "rapid_growth"
		if e == 0 {
			typ = "new_entrant"
		}

		out = append(out, patent.EmergingApplicant{
			Applicant:   name,
			RecentCount: r,
			EarlyCount:  e,
			GrowthRate:  growth,
			Type:        typ,
		})
	}

	return out
}

// competitorPairs reports pairwise IPC-prefix Jaccard similarity among the
// top N applicants; pairs above 0.3 are direct competitors (spec §4.7).
func competitorPairs(counts []patent.ApplicantCount, ipcs map[string]map[string]bool) []patent.CompetitorPair {
	n := topNForSimilarity
	if n > len(counts) {
		n = len(counts)
	}

	var pairs []patent.CompetitorPair

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := counts[i].Applicant, counts[j].Applicant

			sim := jaccardSets(ipcs[a], ipcs[b])
			if sim > 0.3 {
				pairs = append(pairs, patent.CompetitorPair{A: a, B: b, Similarity: sim})
			}
		}
	}

	return pairs
}

func jaccardSets(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0

	for k := range a {
		if b[k] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

// temporalCompetition computes per-year HHI, entrant count, and active
// applicant count, combined into an equally-weighted competition score
// (spec §4.7).
func temporalCompetition(records []patent.Record) []patent.YearlyCompetition {
	byYear := make(map[int]map[string]int)
	firstSeen := make(map[string]int)

	for _, rec := range records {
		year, ok := rec.Year()
		if !ok {
			continue
		}

		if byYear[year] == nil {
			byYear[year] = make(map[string]int)
		}

		for _, raw := range rec.Applicants {
			name := NormalizeApplicant(raw)
			if name == "" {
				continue
			}

			byYear[year][name]++

			if _, seen := firstSeen[name]; !seen {
				firstSeen[name] = year
			}
		}
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}

	sort.Ints(years)

	out := make([]patent.YearlyCompetition, 0, len(years))

	for _, y := range years {
		applicantCounts := byYear[y]

		total := 0
		for _, c := range applicantCounts {
			total += c
		}

		var hhi float64

		if total > 0 {
			for _, c := range applicantCounts {
				share := float64(c) / float64(total)
				hhi += share * share
			}
		}

		entrants := 0

		for name, firstYear := range firstSeen {
			if firstYear == y {
				if _, active := applicantCounts[name]; active {
					entrants++
				}
			}
		}

		active := len(applicantCounts)

		normEntrants := minFloat(float64(entrants)/10, 1)
		normActive := minFloat(float64(active)/20, 1)
		score := (1 - hhi + normEntrants + normActive) / 3

		out = append(out, patent.YearlyCompetition{
			Year:             y,
			HHI:              hhi,
			EntrantCount:     entrants,
			ActiveApplicants: active,
			Score:            score,
		})
	}

	return out
}

// leaderHistory tracks the top applicant by count for each year (SPEC_FULL
// §5 supplement).
func leaderHistory(records []patent.Record) map[int]string {
	byYear := make(map[int]map[string]int)

	for _, rec := range records {
		year, ok := rec.Year()
		if !ok {
			continue
		}

		if byYear[year] == nil {
			byYear[year] = make(map[string]int)
		}

		for _, raw := range rec.Applicants {
			name := NormalizeApplicant(raw)
			if name != "" {
				byYear[year][name]++
			}
		}
	}

	out := make(map[int]string, len(byYear))

	for year, counts := range byYear {
		leader := ""
		best := -1

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			if counts[name] > best {
				best = counts[name]
				leader = name
			}
		}

		if leader != "" {
			out[year] = leader
		}
	}

	return out
}
