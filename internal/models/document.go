package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind selects the spreadsheet layout of an invoice document.
type Kind string

const (
	KindA Kind = "A"
	KindB Kind = "B"
)

// Document is one enumerated invoice spreadsheet. Immutable once enumerated.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       Kind      `json:"kind"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// SourceEntry is a single listing entry returned by a document source.
type SourceEntry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// SourcePage is one page of a location listing. An empty NextToken ends the listing.
type SourcePage struct {
	Entries   []SourceEntry `json:"entries"`
	NextToken string        `json:"nextToken,omitempty"`
}

// Invoice is the normalized content of one document.
type Invoice struct {
	Client       string          `json:"client"`
	Phone        string          `json:"phone"`
	InvoiceTotal decimal.Decimal `json:"invoiceTotal"`
	Items        []LineItem      `json:"items"`
}

// LineItem is one sold item row.
type LineItem struct {
	Code      string          `json:"code"`
	Qty       decimal.Decimal `json:"qty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}
