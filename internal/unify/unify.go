// Package unify maps per-exchange scraped rows onto domain.InsiderRecord.
package unify

import (
	"strings"

	"insider-pipeline/internal/domain"
	"insider-pipeline/internal/normalize"
)

// NSEBaseURL is prepended to relative XBRL links.
const NSEBaseURL = "https://www.nseindia.com"

// Unify converts a scraped row into a canonical record.
// It never fails: unparseable cells become nil or empty values.
// CreatedAt and ID are left for the storage layer.
func Unify(row domain.RawRow) *domain.InsiderRecord {
	switch r := row.(type) {
	case *domain.BSERow:
		return FromBSE(r)
	case *domain.NSERow:
		return FromNSE(r)
	default:
		return &domain.InsiderRecord{}
	}
}

// FromBSE maps a BSE insider row.
// The intimation date is the transaction date; holdings come from combined cells.
func FromBSE(r *domain.BSERow) *domain.InsiderRecord {
	if r == nil {
		return &domain.InsiderRecord{Exchange: domain.ExchangeBSE}
	}

	rec := &domain.InsiderRecord{
		Exchange:        domain.ExchangeBSE,
		ScripCode:       text(r.ScripCode),
		CompanyName:     text(r.CompanyName),
		PersonName:      text(r.PersonName),
		Category:        text(r.Category),
		SecurityType:    text(r.SecurityType),
		TransactionType: text(r.TransactionType),

		NumberOfSecurities: normalize.ParseIntSafe(text(r.NumberOfSecurities)),
		ValuePerSecurity:   normalize.ParseFloatSafe(text(r.ValuePerSecurity)),

		TransactionDateText: normalize.TrimmedPtr(r.DateOfIntimationText),
		AllotmentDateText:   normalize.TrimmedPtr(r.DateOfAllotmentOrTransactionText),

		ModeOfAcquisition: normalize.TrimmedPtr(r.ModeOfAcquisition),
		DerivativeType:    normalize.TrimmedPtr(r.DerivativeType),
		BuyValueUnits:     normalize.TrimmedPtr(r.BuyValueUnits),
		SellValueUnits:    normalize.TrimmedPtr(r.SellValueUnits),
	}

	rec.SecuritiesHeldPreTransaction, rec.SecuritiesHeldPrePercentage = normalize.SplitHolding(text(r.PreTransaction))
	rec.SecuritiesHeldPostTransaction, rec.SecuritiesHeldPostPercentage = normalize.SplitHolding(text(r.PostTransaction))

	if t, ok := normalize.ParseBSEDate(text(r.DateOfIntimationText)); ok {
		rec.TransactionDate = t.UnixMilli()
	}

	return rec
}

// FromNSE maps an NSE insider row. BSE-only fields stay nil.
func FromNSE(r *domain.NSERow) *domain.InsiderRecord {
	if r == nil {
		return &domain.InsiderRecord{Exchange: domain.ExchangeNSE}
	}

	rec := &domain.InsiderRecord{
		Exchange:           domain.ExchangeNSE,
		ScripCode:          text(r.Symbol),
		CompanyName:        text(r.CompanyName),
		PersonName:         text(r.AcquirerOrDisposer),
		Category:           text(r.Regulation),
		SecurityType:       text(r.SecurityType),
		TransactionType:    text(r.TransactionType),
		NumberOfSecurities: normalize.ParseIntSafe(text(r.Quantity)),
		XBRLLink:           AbsoluteNSELink(r.XBRLLink),
	}

	if t, ok := normalize.ParseNSEDate(text(r.DisclosedAt)); ok {
		rec.TransactionDate = t.UnixMilli()
	}

	return rec
}

// AbsoluteNSELink resolves a possibly relative NSE href.
func AbsoluteNSELink(href *string) *string {
	h := normalize.TrimmedPtr(href)
	if h == nil {
		return nil
	}
	lower := strings.ToLower(*h)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return h
	}
	abs := NSEBaseURL + *h
	if !strings.HasPrefix(*h, "/") {
		abs = NSEBaseURL + "/" + *h
	}
	return &abs
}

func text(p *string) string {
	return strings.TrimSpace(normalize.StringValue(p))
}
