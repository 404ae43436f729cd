package llm

import (
	"context"
	"fmt"
	"strings"
)

// ProviderFallback identifies the rule-based generator
const ProviderFallback = "fallback"

// FallbackService produces SQL from simple keyword rules. It keeps the
// pipeline usable when no language model is reachable, at the cost of
// handling only common question shapes
type FallbackService struct{}

// NewFallbackService creates the rule-based generator
func NewFallbackService() *FallbackService {
	return &FallbackService{}
}

type fallbackRule struct {
	keywords []string
	sql      string
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"revenue", "country"},
		sql:      "SELECT country, SUM(revenue) AS total_revenue FROM sales GROUP BY country ORDER BY total_revenue DESC",
	},
	{
		keywords: []string{"revenue", "product"},
		sql:      "SELECT p.name, SUM(s.revenue) AS total_revenue FROM sales s JOIN products p ON s.product_id = p.id GROUP BY p.name ORDER BY total_revenue DESC",
	},
	{
		keywords: []string{"top", "product"},
		sql:      "SELECT p.name, SUM(s.quantity) AS total_quantity FROM sales s JOIN products p ON s.product_id = p.id GROUP BY p.name ORDER BY total_quantity DESC LIMIT 10",
	},
	{
		keywords: []string{"revenue"},
		sql:      "SELECT SUM(revenue) AS total_revenue FROM sales",
	},
	{
		keywords: []string{"count", "sales"},
		sql:      "SELECT COUNT(*) AS sales_count FROM sales",
	},
	{
		keywords: []string{"product"},
		sql:      "SELECT id, name, category, price FROM products ORDER BY name",
	},
	{
		keywords: []string{"sales"},
		sql:      "SELECT id, date, country, product_id, revenue, quantity FROM sales ORDER BY date DESC LIMIT 100",
	},
}

// Generate matches the question against the rule table. Repair requests
// are not supported
func (s *FallbackService) Generate(_ context.Context, req Request) (*Response, error) {
	if req.Repair != nil {
		return nil, fmt.Errorf("fallback generator cannot repair statements")
	}

	question := strings.ToLower(req.Question)

	for _, rule := range fallbackRules {
		if matchesAll(question, rule.keywords) {
			return &Response{
				SQL:   rule.sql,
				Model: ProviderFallback,
			}, nil
		}
	}

	return nil, fmt.Errorf("no fallback rule matches the question")
}

// Name returns the provider identifier
func (s *FallbackService) Name() string {
	return ProviderFallback
}

func matchesAll(question string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(question, kw) {
			return false
		}
	}

	return true
}

var _ Service = (*FallbackService)(nil)
