package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/unify"
)

// Default page locations.
const (
	DefaultBSEInsiderURL          = "https://www.bseindia.com/corporates/Insider_Trading_new.aspx?expandable=2"
	DefaultNSEInsiderURL          = "https://www.nseindia.com/companies-listing/corporate-filings-insider-trading"
	DefaultBSEBulkDealsURL        = "https://www.bseindia.com/markets/equity/EQReports/bulk_deals.aspx"
	DefaultBSECorporateActionsURL = "https://www.bseindia.com/corporates/corporates_act.html"

	bseReferer = "https://www.bseindia.com"
	nseReferer = "https://www.nseindia.com"
)

const (
	bseInsiderTable = "ContentPlaceHolder1_gvData"
	bseInsiderRow   = "TTRow"
	bseInsiderCells = 15

	nseInsiderTable = "CFinsidertradingTable"
	nseInsiderCells = 9
)

// BSEInsiderSource scrapes the BSE insider trading disclosure table.
type BSEInsiderSource struct {
	client *Client
	url    string
}

// NewBSEInsiderSource creates a BSE insider source. An empty pageURL uses the default.
func NewBSEInsiderSource(client *Client, pageURL string) *BSEInsiderSource {
	if pageURL == "" {
		pageURL = DefaultBSEInsiderURL
	}
	return &BSEInsiderSource{client: client, url: pageURL}
}

func (s *BSEInsiderSource) Exchange() domain.Exchange { return domain.ExchangeBSE }

// FetchRows downloads and parses the disclosure table.
func (s *BSEInsiderSource) FetchRows(ctx context.Context, filter domain.RowFilter) ([]domain.RawRow, error) {
	target := s.url
	if filter.ScripCode != "" {
		target += separator(target) + "scripcode=" + url.QueryEscape(filter.ScripCode)
	}

	body, err := s.client.Get(ctx, "bse_insider", target, bseReferer)
	if err != nil {
		return nil, err
	}
	return ParseBSEInsider(body)
}

// ParseBSEInsider extracts insider rows from a BSE disclosure page.
// Rows with fewer than 15 cells are ignored; the intimation date cell is optional.
func ParseBSEInsider(body []byte) ([]domain.RawRow, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse bse insider page: %w", err)
	}

	var rows []domain.RawRow
	for _, tr := range tableRows(doc, hasID(bseInsiderTable), bseInsiderRow) {
		td := cells(tr)
		if len(td) < bseInsiderCells {
			continue
		}
		row := &domain.BSERow{
			ScripCode:                        cellPtr(td[0]),
			CompanyName:                      cellPtr(td[1]),
			PersonName:                       cellPtr(td[2]),
			Category:                         cellPtr(td[3]),
			PreTransaction:                   cellPtr(td[4]),
			SecurityType:                     cellPtr(td[5]),
			NumberOfSecurities:               cellPtr(td[6]),
			ValuePerSecurity:                 cellPtr(td[7]),
			TransactionType:                  cellPtr(td[8]),
			PostTransaction:                  cellPtr(td[9]),
			DateOfAllotmentOrTransactionText: cellPtr(td[10]),
			ModeOfAcquisition:                cellPtr(td[11]),
			DerivativeType:                   cellPtr(td[12]),
			BuyValueUnits:                    cellPtr(td[13]),
			SellValueUnits:                   cellPtr(td[14]),
		}
		if len(td) > 15 {
			row.DateOfIntimationText = cellPtr(td[15])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// NSEInsiderSource scrapes the NSE insider trading filings table.
type NSEInsiderSource struct {
	client *Client
	url    string
}

// NewNSEInsiderSource creates an NSE insider source. An empty pageURL uses the default.
func NewNSEInsiderSource(client *Client, pageURL string) *NSEInsiderSource {
	if pageURL == "" {
		pageURL = DefaultNSEInsiderURL
	}
	return &NSEInsiderSource{client: client, url: pageURL}
}

func (s *NSEInsiderSource) Exchange() domain.Exchange { return domain.ExchangeNSE }

// FetchRows downloads and parses the filings table.
func (s *NSEInsiderSource) FetchRows(ctx context.Context, filter domain.RowFilter) ([]domain.RawRow, error) {
	target := s.url
	if filter.ScripCode != "" {
		target += separator(target) + "symbol=" + url.QueryEscape(filter.ScripCode) + "&tabIndex=equity"
	}

	body, err := s.client.Get(ctx, "nse_insider", target, nseReferer)
	if err != nil {
		return nil, err
	}
	return ParseNSEInsider(body)
}

// ParseNSEInsider extracts insider rows from an NSE filings page.
// Rows missing symbol, company, person or disclosure time are dropped.
func ParseNSEInsider(body []byte) ([]domain.RawRow, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse nse insider page: %w", err)
	}

	var rows []domain.RawRow
	for _, tr := range tableRows(doc, hasID(nseInsiderTable), "") {
		td := cells(tr)
		if len(td) < nseInsiderCells {
			continue
		}

		symbol := cellPtr(findFirst(td[0], isAnchor))
		if symbol == nil {
			symbol = cellPtr(td[0])
		}
		row := &domain.NSERow{
			Symbol:             symbol,
			CompanyName:        cellPtr(td[1]),
			AcquirerOrDisposer: cellPtr(td[2]),
			Regulation:         cellPtr(td[3]),
			SecurityType:       cellPtr(td[4]),
			Quantity:           cellPtr(td[5]),
			TransactionType:    cellPtr(td[6]),
			DisclosedAt:        cellPtr(td[7]),
		}
		if a := findFirst(td[8], isAnchor); a != nil {
			if href := attr(a, "href"); href != "" {
				row.XBRLLink = unify.AbsoluteNSELink(&href)
			}
		}

		if row.Symbol == nil || row.CompanyName == nil || row.AcquirerOrDisposer == nil || row.DisclosedAt == nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isAnchor(n *html.Node) bool { return isElement(atom.A)(n) }

func separator(u string) string {
	if strings.Contains(u, "?") {
		return "&"
	}
	return "?"
}
