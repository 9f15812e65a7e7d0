package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/patentlens/kernel/internal/patent"
)

// BuildContent composes the summary and per-section prose for bundle,
// optionally enhancing each section with gen (may be nil to skip
// enhancement entirely, as Depth=basic requests do).
func BuildContent(ctx context.Context, req Request, bundle *patent.Bundle, gen TextGenerator) Content {
	var sections []Section

	if bundle.HasTrend() {
		sections = append(sections, Section{Title: "趋势分析", Body: trendProse(bundle.Trend)})
	}

	if bundle.HasCompetition() {
		sections = append(sections, Section{Title: "竞争格局", Body: competitionProse(bundle.Competition)})
	}

	if bundle.HasTechnology() {
		sections = append(sections, Section{Title: "技术分类", Body: technologyProse(bundle.Technology)})
	}

	if gen != nil && req.Depth == DepthDeep {
		for i := range sections {
			enhanced, err := gen.Generate(ctx, enhancementPrompt(req, sections[i]))
			if err == nil && enhanced != "" {
				sections[i].Body = enhanced
			}
		}
	}

	return Content{
		Summary:  summaryOf(req, bundle),
		Sections: sections,
	}
}

func enhancementPrompt(req Request, s Section) string {
	return fmt.Sprintf("Expand the following %q section for a patent analysis report about %q:\n\n%s", s.Title, strings.Join(req.Keywords, ", "), s.Body)
}

func summaryOf(req Request, bundle *patent.Bundle) string {
	var parts []string

	if len(req.Keywords) > 0 {
		parts = append(parts, fmt.Sprintf("本报告围绕关键词 %s 展开分析。", strings.Join(req.Keywords, "、")))
	}

	if bundle.HasTrend() && !bundle.Trend.Insufficient {
		parts = append(parts, fmt.Sprintf("专利申请趋势呈%s态势（%s）。", directionLabel(bundle.Trend.Direction), bundle.Trend.Pattern))
	}

	if bundle.HasCompetition() && !bundle.Competition.Insufficient {
		parts = append(parts, fmt.Sprintf("市场集中度为%s（HHI=%.3f）。", bundle.Competition.ConcentrationLevel, bundle.Competition.HHI))
	}

	if bundle.HasTechnology() && !bundle.Technology.Insufficient {
		parts = append(parts, fmt.Sprintf("主要技术方向包括：%s。", strings.Join(bundle.Technology.MainTechnologies, "、")))
	}

	if len(parts) == 0 {
		return "数据不足，无法生成摘要。"
	}

	return strings.Join(parts, "")
}

func directionLabel(direction string) string {
	switch direction {
	case "increasing":
		return "上升"
	case "decreasing":
		return "下降"
	default:
		return "平稳"
	}
}

func trendProse(t *patent.TrendResult) string {
	if t.Insufficient {
		return "数据点不足，无法进行趋势分析：" + strings.Join(t.Issues, "；")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "数据覆盖 %d 个数据点，年增长模式为 %s，方向判定为%s（置信度 %.2f）。", t.DataPointCount, t.Pattern, directionLabel(t.Direction), t.Confidence)

	if t.CAGRValid {
		fmt.Fprintf(&b, " 复合年增长率约为 %.1f%%。", t.CAGR*100)
	}

	if len(t.Outliers) > 0 {
		fmt.Fprintf(&b, " 检测到 %d 个异常年份。", len(t.Outliers))
	}

	return b.String()
}

func competitionProse(c *patent.CompetitionResult) string {
	if c.Insufficient {
		return "数据点不足，无法进行竞争分析：" + strings.Join(c.Issues, "；")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "市场由 %d 个申请人构成，HHI=%.3f，CR4=%.1f%%，判定为%s。", len(c.ApplicantCounts), c.HHI, c.CR4*100, c.ConcentrationLevel)

	if len(c.Emerging) > 0 {
		fmt.Fprintf(&b, " 发现 %d 个新兴申请人。", len(c.Emerging))
	}

	return b.String()
}

func technologyProse(tc *patent.TechnologyResult) string {
	if tc.Insufficient {
		return "数据点不足，无法进行技术分类：" + strings.Join(tc.Issues, "；")
	}

	var b strings.Builder

	fmt.Fprintf(&b, "识别出 %d 个 IPC 分类及 %d 个技术聚类。", len(tc.IPCDistribution), len(tc.Clusters))

	if len(tc.MainTechnologies) > 0 {
		fmt.Fprintf(&b, " 主要技术：%s。", strings.Join(tc.MainTechnologies, "、"))
	}

	return b.String()
}
