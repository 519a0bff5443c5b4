package transporthttp

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"papertrade/internal/types"
)

// handlePortfolioChart renders the performance history as a standalone HTML
// line chart.
func (r *TradingRouter) handlePortfolioChart(c *gin.Context) {
	p, err := r.engine.PortfolioView(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	line := buildPerformanceChart(p)
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := line.Render(c.Writer); err != nil {
		writeError(c, err)
	}
}

func buildPerformanceChart(p *types.Portfolio) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Portfolio Performance",
			Subtitle: p.Owner,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	labels := make([]string, 0, len(p.Performance.History))
	values := make([]opts.LineData, 0, len(p.Performance.History))
	cash := make([]opts.LineData, 0, len(p.Performance.History))
	for _, pt := range p.Performance.History {
		labels = append(labels, pt.Timestamp.Format("01-02 15:04"))
		values = append(values, opts.LineData{Value: pt.Value})
		cash = append(cash, opts.LineData{Value: pt.Cash})
	}
	line.SetXAxis(labels).
		AddSeries("Total Value", values, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)})).
		AddSeries("Cash", cash, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}
