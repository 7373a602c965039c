package zhitu

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/junzhu/tidegate/backend/internal/contracts"
)

// Candidate field names per concept. The upstream renames fields between
// plan tiers, so extraction tries each in order.
var (
	netProfitKeys = []string{"kflr", "jlr", "netProfit", "net_profit", "parentNetProfit", "gsjlr"}
	revenueKeys   = []string{"zyyw", "yysr", "totalRevenue", "total_revenue", "yyzsr", "revenue"}
	dateKeys      = []string{"date", "jzrq", "reportDate", "rq", "report_date"}
)

// MetricsSource adapts the client to the scanner's data contract.
type MetricsSource struct {
	client *Client
}

// NewMetricsSource creates a MetricsSource.
func NewMetricsSource(client *Client) *MetricsSource {
	return &MetricsSource{client: client}
}

// FetchLatestMetrics returns revenue and net profit from the most recent
// annual report. A field the upstream marks "--" stays nil: absent is
// unknown, never zero.
func (m *MetricsSource) FetchLatestMetrics(ctx context.Context, code string) (*contracts.FinancialMetrics, error) {
	rows, err := m.client.GetFinancialIndicators(ctx, code)
	if err != nil {
		return nil, err
	}

	annual := annualRowsLatestFirst(rows)
	if len(annual) == 0 {
		return &contracts.FinancialMetrics{}, nil
	}

	latest := annual[0]
	return &contracts.FinancialMetrics{
		Revenue:   extractField(latest, revenueKeys),
		NetProfit: extractField(latest, netProfitKeys),
		Period:    extractDate(latest),
	}, nil
}

// FetchProfitHistory returns annual net profit, latest first, up to years
// entries. Rows with no resolvable profit figure are dropped.
func (m *MetricsSource) FetchProfitHistory(ctx context.Context, code string, years int) ([]contracts.ProfitPeriod, error) {
	rows, err := m.client.GetIncomeStatements(ctx, code)
	if err != nil {
		return nil, err
	}

	var history []contracts.ProfitPeriod
	for _, row := range annualRowsLatestFirst(rows) {
		profit := extractField(row, netProfitKeys)
		if profit == nil {
			continue
		}
		history = append(history, contracts.ProfitPeriod{
			Period:    extractDate(row),
			NetProfit: *profit,
		})
		if len(history) >= years {
			break
		}
	}
	return history, nil
}

// annualRowsLatestFirst keeps rows whose report period is a fiscal year end
// and sorts them newest first.
func annualRowsLatestFirst(rows []map[string]interface{}) []map[string]interface{} {
	var annual []map[string]interface{}
	for _, row := range rows {
		if isAnnualPeriod(extractDate(row)) {
			annual = append(annual, row)
		}
	}
	sort.Slice(annual, func(i, j int) bool {
		return extractDate(annual[i]) > extractDate(annual[j])
	})
	return annual
}

// isAnnualPeriod reports whether a report date is a fiscal year end.
func isAnnualPeriod(date string) bool {
	return strings.HasSuffix(date, "12-31") || strings.HasSuffix(date, "1231")
}

// extractDate pulls the report period from a row, normalized to at most ten
// characters.
func extractDate(row map[string]interface{}) string {
	for _, key := range dateKeys {
		if val, ok := row[key]; ok && val != nil {
			s := fmt.Sprintf("%v", val)
			if s == "" {
				continue
			}
			if len(s) > 10 {
				s = s[:10]
			}
			return s
		}
	}
	return ""
}

// extractField resolves the first candidate key holding a usable number.
// The "--" marker and unparsable values are skipped.
func extractField(row map[string]interface{}, candidates []string) *float64 {
	for _, key := range candidates {
		val, ok := row[key]
		if !ok || val == nil {
			continue
		}
		switch v := val.(type) {
		case float64:
			f := v
			return &f
		case string:
			s := strings.TrimSpace(v)
			if s == "" || s == "--" {
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				continue
			}
			return &f
		}
	}
	return nil
}
