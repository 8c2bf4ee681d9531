package internal

import "github.com/shopspring/decimal"

type ItemStatus string

const (
	ItemPending    ItemStatus = "pending"
	ItemProcessing ItemStatus = "processing"
	ItemAssigned   ItemStatus = "assigned"
	ItemCompleted  ItemStatus = "completed"
	ItemFailed     ItemStatus = "failed"
)

// OrderLineItem is one product quantity/price entry belonging to an order
// upload. Amount is always Quantity * UnitPrice; the pipeline recomputes it on
// every edit rather than trusting stored values.
type OrderLineItem struct {
	ID          int
	UploadID    int
	ProductCode string
	ProductName string
	Category    string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Status      ItemStatus
}

type CategoryGroup struct {
	CategoryID    string
	CategoryName  string
	Items         []OrderLineItem
	TotalQuantity decimal.Decimal
	TotalAmount   decimal.Decimal
}

type SupplierRecord struct {
	ID         int
	SyncUID    *string
	Name       string
	Email      string
	CC         []string
	Categories []string
	Active     bool
	RawJSON    string
}

type CatalogProduct struct {
	ID        int
	SyncUID   *string
	Code      string
	Name      string
	AltName   *string
	Category  string
	Unit      *string
	ListPrice *decimal.Decimal
	UpdatedAt *string
	RawJSON   string
}

type MatchStatus string

const (
	MatchMatched  MatchStatus = "matched"
	MatchPossible MatchStatus = "possible_match"
	MatchNotFound MatchStatus = "not_matched"
	MatchError    MatchStatus = "error"
)

type MatchedProduct struct {
	ID       *int    `json:"id"`
	SyncUID  *string `json:"syncUid"`
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Category *string `json:"category"`
	Unit     *string `json:"unit"`
}

// MatchResult is the per-line outcome of a batch match. Every input line item
// yields exactly one result; a candidate lookup failure surfaces here as data
// with status "error", never as a batch failure.
type MatchResult struct {
	LineItemID int             `json:"lineItemId"`
	Status     MatchStatus     `json:"status"`
	Score      float64         `json:"score"`
	Reason     string          `json:"reason"`
	Product    *MatchedProduct `json:"product"`
}

type BatchMatchSummary struct {
	TotalItems     int           `json:"totalItems"`
	MatchedItems   int           `json:"matchedItems"`
	UnmatchedItems int           `json:"unmatchedItems"`
	Results        []MatchResult `json:"results"`
}

type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "pending"
	DispatchSent      DispatchStatus = "sent"
	DispatchFailed    DispatchStatus = "failed"
	DispatchAbandoned DispatchStatus = "abandoned"
)

// DispatchRecord tracks one supplier in the send queue. The only edge back
// into pending is an explicit retry from failed.
type DispatchRecord struct {
	SupplierID int
	Status     DispatchStatus
	Error      string
	MessageID  string
	SentAt     string
}

type ReplyRecord struct {
	ID         int
	SupplierID int
	MessageID  string
	InReplyTo  string
	Subject    string
	Sender     string
	ReceivedAt string
	BodyText   string
	IsBounce   bool
}

type OrderUpload struct {
	ID         int
	Reference  string
	ShipName   string
	VoyageNo   string
	InvoiceNo  string
	Port       string
	ReceivedAt string
	Status     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	InReplyTo  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}
