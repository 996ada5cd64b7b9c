package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"statement_metrics/pkg/core/market"
	"statement_metrics/pkg/core/statement"
)

// statementBlock is one of Financials.Income_Statement / Balance_Sheet.
// Yearly maps a period date to line items; values arrive as quoted numbers,
// bare numbers or null, alongside non-numeric fields such as filing_date.
type statementBlock struct {
	CurrencySymbol string                                `json:"currency_symbol"`
	Yearly         map[string]map[string]json.RawMessage `json:"yearly"`
}

type fundamentalsPayload struct {
	General struct {
		Code         string `json:"Code"`
		Name         string `json:"Name"`
		CurrencyCode string `json:"CurrencyCode"`
	} `json:"General"`
	Highlights struct {
		MarketCapitalization decimal.NullDecimal `json:"MarketCapitalization"`
	} `json:"Highlights"`
	Technicals struct {
		Beta decimal.NullDecimal `json:"Beta"`
	} `json:"Technicals"`
	SharesStats struct {
		SharesOutstanding decimal.NullDecimal `json:"SharesOutstanding"`
	} `json:"SharesStats"`
	Financials struct {
		BalanceSheet    statementBlock `json:"Balance_Sheet"`
		IncomeStatement statementBlock `json:"Income_Statement"`
	} `json:"Financials"`
}

// Fundamentals is the decoded fundamentals document for one ticker.
type Fundamentals struct {
	Ticker   string
	Name     string
	Currency string
	Income   *statement.Table
	Balance  *statement.Table
	Snapshot market.Snapshot
}

// Fundamentals fetches /api/fundamentals/{ticker}.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	var payload fundamentalsPayload
	path := "/api/fundamentals/" + url.PathEscape(ticker)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch fundamentals for %s: %w", ticker, err)
	}

	f := &Fundamentals{
		Ticker:   strings.ToUpper(ticker),
		Name:     payload.General.Name,
		Currency: payload.General.CurrencyCode,
		Income:   toTable(payload.Financials.IncomeStatement),
		Balance:  toTable(payload.Financials.BalanceSheet),
		Snapshot: market.Snapshot{
			Beta:              floatOf(payload.Technicals.Beta),
			MarketCap:         floatOf(payload.Highlights.MarketCapitalization),
			SharesOutstanding: floatOf(payload.SharesStats.SharesOutstanding),
		},
	}
	c.logger.Debug().
		Str("ticker", f.Ticker).
		Int("income_periods", len(f.Income.Periods())).
		Int("balance_periods", len(f.Balance.Periods())).
		Msg("fundamentals decoded")
	return f, nil
}

// quotePayload is the real-time endpoint body. close is "NA" when the
// exchange has no quote.
type quotePayload struct {
	Code  string          `json:"code"`
	Close json.RawMessage `json:"close"`
}

// Quote fetches the latest close from /api/real-time/{ticker}. A missing
// quote returns nil without error.
func (c *Client) Quote(ctx context.Context, ticker string) (*float64, error) {
	var payload quotePayload
	path := "/api/real-time/" + url.PathEscape(ticker)
	if err := c.get(ctx, path, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", ticker, err)
	}
	v, ok := parseNumber(payload.Close)
	if !ok {
		c.logger.Warn().Str("ticker", ticker).Msg("no real-time close reported")
		return nil, nil
	}
	return &v, nil
}

// Snapshot implements market.Provider.
func (c *Client) Snapshot(ctx context.Context, ticker string) (market.Snapshot, error) {
	f, err := c.Fundamentals(ctx, ticker)
	if err != nil {
		return market.Snapshot{}, err
	}
	return c.withPrice(ctx, ticker, f.Snapshot)
}

func (c *Client) withPrice(ctx context.Context, ticker string, snap market.Snapshot) (market.Snapshot, error) {
	price, err := c.Quote(ctx, ticker)
	if err != nil {
		return market.Snapshot{}, err
	}
	snap.Price = price
	return snap, nil
}

func toTable(block statementBlock) *statement.Table {
	labels := make([]string, 0, len(block.Yearly))
	rows := make(map[string]statement.Row)
	for date, fields := range block.Yearly {
		labels = append(labels, date)
		for field, raw := range fields {
			v, ok := parseNumber(raw)
			if !ok {
				continue
			}
			if rows[field] == nil {
				rows[field] = statement.Row{}
			}
			rows[field][date] = v
		}
	}
	return statement.NewTable(statement.ParsePeriods(labels...), rows)
}

// parseNumber decodes a JSON number, quoted number or null. Non-numeric
// strings (dates, "NA") report false.
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var d decimal.NullDecimal
	if err := json.Unmarshal(raw, &d); err != nil || !d.Valid {
		return 0, false
	}
	f, _ := d.Decimal.Float64()
	return f, true
}

func floatOf(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f, _ := d.Decimal.Float64()
	return &f
}
