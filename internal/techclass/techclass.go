// Package techclass implements the Tech Classifier (C8): IPC distribution
// labeling, keyword extraction, keyword clustering into technology areas,
// and year-over-year technology evolution verdicts.
package techclass

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/patentlens/kernel/internal/patent"
)

const (
	minDataPoints    = 1
	maxMainTechs     = 10
	topIPCForMain    = 3
)

var ipcLabels = map[string]string{
	"G06F": "通用计算",
	"H04L": "数字通信",
	"G06N": "人工智能",
	"H04W": "无线通信网络",
	"G06Q": "商业数据处理",
	"H01L": "半导体器件",
	"G06K": "数据识别",
	"H04N": "图像通信",
	"G06T": "图像数据处理",
	"G01S": "无线电定位",
}

// keywordPatterns covers canonical tech areas with regexes plus a short
// common-terms list (spec §4.8); the map key is the seed tech area.
var keywordPatterns = map[string][]*regexp.Regexp{
	"人工智能": {
		regexp.MustCompile(`(?i)artificial intelligence|machine learning|neural network|deep learning|人工智能|机器学习|神经网络`),
	},
	"通信技术": {
		regexp.MustCompile(`(?i)5g|wireless|communication|network protocol|无线|通信|网络协议`),
	},
	"半导体": {
		regexp.MustCompile(`(?i)semiconductor|integrated circuit|chip|wafer|半导体|集成电路|芯片`),
	},
	"新能源": {
		regexp.MustCompile(`(?i)battery|solar|renewable energy|electric vehicle|电池|太阳能|新能源|电动车`),
	},
	"生物医药": {
		regexp.MustCompile(`(?i)biotechnology|pharmaceutical|medical device|生物技术|医药|医疗器械`),
	},
}

var commonTerms = []string{
	"method", "system", "apparatus", "device", "process", "装置", "系统", "方法",
}

// Analyzer runs tech classification over patent records.
type Analyzer struct{}

// New creates a tech classifier Analyzer.
func New() *Analyzer { return &Analyzer{} }

// Analyze computes the full TechnologyResult for records.
func (a *Analyzer) Analyze(records []patent.Record) *patent.TechnologyResult {
	if len(records) < minDataPoints {
		return &patent.TechnologyResult{
			DataPointCount: len(records),
			Issues:         []string{"no data points"},
			Insufficient:   true,
		}
	}

	ipcDist := ipcDistribution(records)
	keywords := extractKeywords(records)
	clusters := clusterKeywords(keywords)

	result := &patent.TechnologyResult{
		IPCDistribution:  ipcDist,
		Keywords:         keywords,
		Clusters:         clusters,
		MainTechnologies: mainTechnologies(ipcDist, clusters),
		Evolution:        technologyEvolution(records, clusters),
		DataPointCount:   len(records),
	}

	return result
}

func ipcDistribution(records []patent.Record) []patent.IPCStat {
	counts := make(map[string]int)

	for _, rec := range records {
		for _, ipc := range rec.IPCClasses {
			prefix := prefixOf(ipc)
			if prefix == "" {
				continue
			}

			counts[prefix]++
		}
	}

	out := make([]patent.IPCStat, 0, len(counts))
	for prefix, count := range counts {
		out = append(out, patent.IPCStat{Prefix: prefix, Label: labelFor(prefix), Count: count})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].Prefix < out[j].Prefix
	})

	return out
}

func prefixOf(ipc string) string {
	ipc = strings.TrimSpace(ipc)
	if len(ipc) < 4 {
		return ""
	}

	return strings.ToUpper(ipc[:4])
}

func labelFor(prefix string) string {
	if label, ok := ipcLabels[prefix]; ok {
		return label
	}

	return fmt.Sprintf("其他分类(%s)", prefix)
}

// extractKeywords runs the fixed regex patterns plus the common-terms list
// over every record's title and abstract, returning the deduplicated union.
func extractKeywords(records []patent.Record) []string {
	seen := make(map[string]bool)

	var out []string

	add := func(kw string) {
		if kw == "" || seen[kw] {
			return
		}

		seen[kw] = true
		out = append(out, kw)
	}

	for _, rec := range records {
		text := rec.Title + " " + rec.Abstract
		lower := strings.ToLower(text)

		for area, patterns := range keywordPatterns {
			for _, re := range patterns {
				if re.MatchString(text) {
					add(area)
				}
			}
		}

		for _, term := range commonTerms {
			if strings.Contains(lower, strings.ToLower(term)) {
				add(term)
			}
		}
	}

	sort.Strings(out)

	return out
}

// clusterKeywords puts each keyword that names a tech area (extractKeywords
// emits the area name on a pattern match) into that area's cluster; there
// are no per-area seed lists, so every other keyword (the common terms)
// goes to the "其他技术" cluster. Clusters are ranked by size (spec §4.8).
func clusterKeywords(keywords []string) []patent.TechCluster {
	byArea := make(map[string][]string)

	var other []string

	for _, kw := range keywords {
		if _, isArea := keywordPatterns[kw]; isArea {
			byArea[kw] = append(byArea[kw], kw)

			continue
		}

		other = append(other, kw)
	}

	clusters := make([]patent.TechCluster, 0, len(byArea)+1)

	for area, kws := range byArea {
		clusters = append(clusters, patent.TechCluster{Area: area, Keywords: kws})
	}

	if len(other) > 0 {
		clusters = append(clusters, patent.TechCluster{Area: "其他技术", Keywords: other})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].Keywords) != len(clusters[j].Keywords) {
			return len(clusters[i].Keywords) > len(clusters[j].Keywords)
		}

		return clusters[i].Area < clusters[j].Area
	})

	return clusters
}

// mainTechnologies is the union of the top-3 IPC labels and the largest
// cluster's keywords, capped to 10 entries (spec §4.8).
func mainTechnologies(ipcDist []patent.IPCStat, clusters []patent.TechCluster) []string {
	seen := make(map[string]bool)

	var out []string

	add := func(name string) bool {
		if name == "" || seen[name] {
			return false
		}

		seen[name] = true
		out = append(out, name)

		return len(out) >= maxMainTechs
	}

	n := topIPCForMain
	if n > len(ipcDist) {
		n = len(ipcDist)
	}

	for i := 0; i < n; i++ {
		if add(ipcDist[i].Label) {
			return out
		}
	}

	if len(clusters) > 0 {
		for _, kw := range clusters[0].Keywords {
			if add(kw) {
				return out
			}
		}
	}

	return out
}

// technologyEvolution computes per-(year, area) counts and classifies each
// area's trajectory by comparing the early half vs late half average
// (spec §4.8).
func technologyEvolution(records []patent.Record, clusters []patent.TechCluster) []patent.TechEvolution {
	areaKeywordSet := make(map[string]map[string]bool, len(clusters))
	for _, c := range clusters {
		set := make(map[string]bool, len(c.Keywords))
		for _, kw := range c.Keywords {
			set[kw] = true
		}

		areaKeywordSet[c.Area] = set
	}

	yearlyByArea := make(map[string]map[int]int)

	for _, rec := range records {
		year, ok := rec.Year()
		if !ok {
			continue
		}

		text := strings.ToLower(rec.Title + " " + rec.Abstract)

		for area, patterns := range keywordPatterns {
			matched := false

			for _, re := range patterns {
				if re.MatchString(text) {
					matched = true

					break
				}
			}

			if !matched {
				continue
			}

			if yearlyByArea[area] == nil {
				yearlyByArea[area] = make(map[int]int)
			}

			yearlyByArea[area][year]++
		}
	}

	areas := make([]string, 0, len(yearlyByArea))
	for area := range yearlyByArea {
		areas = append(areas, area)
	}

	sort.Strings(areas)

	out := make([]patent.TechEvolution, 0, len(areas))

	for _, area := range areas {
		yearly := yearlyByArea[area]

		out = append(out, patent.TechEvolution{
			Area:    area,
			Verdict: evolutionVerdict(yearly),
			Yearly:  yearly,
		})
	}

	return out
}

func evolutionVerdict(yearly map[int]int) string {
	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}

	sort.Ints(years)

	if len(years) < 2 {
		return "stable"
	}

	mid := len(years) / 2

	earlyAvg := averageCount(years[:mid], yearly)
	lateAvg := averageCount(years[mid:], yearly)

	if earlyAvg == 0 {
		if lateAvg > 0 {
			return "rapid"
		}

		return "stable"
	}

	ratio := lateAvg / earlyAvg

	switch {
	case ratio >= 1.5:
		return "rapid"
	case ratio >= 1.1:
		return "steady"
	case ratio <= 0.7:
		return "declining"
	default:
		return "stable"
	}
}

func averageCount(years []int, yearly map[int]int) float64 {
	if len(years) == 0 {
		return 0
	}

	sum := 0
	for _, y := range years {
		sum += yearly[y]
	}

	return float64(sum) / float64(len(years))
}
