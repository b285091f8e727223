package scrape

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
)

const (
	bulkDealsTable = "ContentPlaceHolder1_gvbulk_deals"
	bulkDealsRow   = "tdcolumn"
	bulkDealsCells = 7

	corpActionsTableClass = "mGrid"
	corpActionsRow        = "TTRow"
	corpActionsCells      = 10
)

var scripCodeHref = regexp.MustCompile(`scrip_cd=(\d+)`)

// BulkDealSource scrapes the BSE bulk deals report.
type BulkDealSource struct {
	client *Client
	url    string
}

// NewBulkDealSource creates a bulk deal source. An empty pageURL uses the default.
func NewBulkDealSource(client *Client, pageURL string) *BulkDealSource {
	if pageURL == "" {
		pageURL = DefaultBSEBulkDealsURL
	}
	return &BulkDealSource{client: client, url: pageURL}
}

// FetchBulkDeals downloads and parses the report.
func (s *BulkDealSource) FetchBulkDeals(ctx context.Context) ([]*domain.BulkDeal, error) {
	body, err := s.client.Get(ctx, "bse_bulk_deals", s.url, bseReferer)
	if err != nil {
		return nil, err
	}
	return ParseBulkDeals(body)
}

// ParseBulkDeals extracts deals from the bulk deals page. Unparseable
// quantities and prices become zero; any deal type other than "S" is a buy.
func ParseBulkDeals(body []byte) ([]*domain.BulkDeal, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse bulk deals page: %w", err)
	}

	var deals []*domain.BulkDeal
	for _, tr := range tableRows(doc, hasID(bulkDealsTable), bulkDealsRow) {
		td := cells(tr)
		if len(td) < bulkDealsCells {
			continue
		}

		d := &domain.BulkDeal{
			DateText:    text(td[0]),
			ScripCode:   text(td[1]),
			CompanyName: text(td[2]),
			ClientName:  text(td[3]),
			DealType:    domain.DealTypeBuy,
			Price:       decimal.Zero,
		}
		if strings.EqualFold(text(td[4]), string(domain.DealTypeSell)) {
			d.DealType = domain.DealTypeSell
		}
		if t, ok := normalize.ParseBSEDate(d.DateText); ok {
			d.Date = t.UnixMilli()
		}
		if q := normalize.ParseIntSafe(text(td[5])); q != nil {
			d.Quantity = *q
		}
		if p, err := decimal.NewFromString(strings.ReplaceAll(text(td[6]), ",", "")); err == nil {
			d.Price = p
		}
		d.TotalValue = d.Price.Mul(decimal.NewFromInt(d.Quantity))
		deals = append(deals, d)
	}
	return deals, nil
}

// CorporateActionSource scrapes the BSE corporate actions listing.
type CorporateActionSource struct {
	client *Client
	url    string
}

// NewCorporateActionSource creates a corporate action source. An empty pageURL uses the default.
func NewCorporateActionSource(client *Client, pageURL string) *CorporateActionSource {
	if pageURL == "" {
		pageURL = DefaultBSECorporateActionsURL
	}
	return &CorporateActionSource{client: client, url: pageURL}
}

// FetchCorporateActions downloads and parses the listing.
func (s *CorporateActionSource) FetchCorporateActions(ctx context.Context) ([]*domain.CorporateAction, error) {
	body, err := s.client.Get(ctx, "bse_corporate_actions", s.url, bseReferer)
	if err != nil {
		return nil, err
	}
	return ParseCorporateActions(body)
}

// ParseCorporateActions extracts actions from the listing page. The scrip
// code comes from the scrip_cd parameter of the first cell's link when present.
func ParseCorporateActions(body []byte) ([]*domain.CorporateAction, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("parse corporate actions page: %w", err)
	}

	var actions []*domain.CorporateAction
	for _, tr := range tableRows(doc, tableWithClass(corpActionsTableClass), corpActionsRow) {
		td := cells(tr)
		if len(td) < corpActionsCells {
			continue
		}

		a := &domain.CorporateAction{
			ScripCode:   actionScripCode(td[0]),
			CompanyName: text(td[1]),
			Purpose:     text(td[3]),
			ExDateText:  text(td[4]),
			RecordDate:  cellPtr(td[5]),
			BCStartDate: cellPtr(td[6]),
			BCEndDate:   cellPtr(td[7]),
			NDStartDate: cellPtr(td[8]),
			NDEndDate:   cellPtr(td[9]),
		}
		if t, ok := normalize.ParseDate(a.ExDateText); ok {
			a.ExDate = t.UnixMilli()
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func actionScripCode(cell *html.Node) string {
	if a := findFirst(cell, isAnchor); a != nil {
		if m := scripCodeHref.FindStringSubmatch(attr(a, "href")); m != nil {
			return m[1]
		}
		if s := text(a); s != "" {
			return s
		}
	}
	return text(cell)
}
