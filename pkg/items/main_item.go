package items

import (
	"time"

	"github.com/mesh-intelligence/eric/pkg/columns"
)

// MainBoardID is the board holding repair jobs.
const MainBoardID = "349212843"

// RecordTypeMain tags main board items. Main items are not cached.
const RecordTypeMain = "main"

// MainItem is a repair job on the main board.
type MainItem struct {
	*Item

	text           *columns.Text
	number         *columns.Number
	status         *columns.Status
	date           *columns.Date
	urlLink        *columns.LinkValue
	productConnect *columns.Relation
	notes          *columns.LongText
}

// NewMainItem returns an unloaded main item; id may be "".
func NewMainItem(env *Env, id string) *MainItem {
	m := &MainItem{
		text:           columns.NewText("text69"),
		number:         columns.NewNumber("dup__of_quote_total"),
		status:         columns.NewStatus("status_161"),
		date:           columns.NewDate("date6"),
		urlLink:        columns.NewLink("link1"),
		productConnect: columns.NewRelation("board_relation"),
		notes:          columns.NewLongText("long_text5"),
	}
	m.Item = newItem(env, RecordTypeMain, MainBoardID, id,
		Field{Name: "text", Value: m.text},
		Field{Name: "quote_total", Value: m.number},
		Field{Name: "status", Value: m.status},
		Field{Name: "booking_date", Value: m.date},
		Field{Name: "url_link", Value: m.urlLink},
		Field{Name: "products", Value: m.productConnect},
		Field{Name: "notes", Value: m.notes},
	)
	return m
}

func (m *MainItem) Text() string              { return m.text.Value() }
func (m *MainItem) SetText(v string) error    { return m.Set("text", v) }
func (m *MainItem) QuoteTotal() int           { return m.number.Value() }
func (m *MainItem) SetQuoteTotal(v int) error { return m.Set("quote_total", v) }
func (m *MainItem) Status() string            { return m.status.Value() }
func (m *MainItem) SetStatus(v string) error  { return m.Set("status", v) }

// BookingDate returns the booking date in UTC, or nil when unset.
func (m *MainItem) BookingDate() *time.Time { return m.date.Value() }

// SetBookingDate stages a booking date; nil clears it.
func (m *MainItem) SetBookingDate(v *time.Time) error { return m.Set("booking_date", v) }

func (m *MainItem) URLLink() columns.Link { return m.urlLink.Value() }

func (m *MainItem) SetURLLink(text, url string) error {
	return m.Set("url_link", columns.Link{URL: url, Text: text})
}

func (m *MainItem) ProductIDs() []string { return m.productConnect.Value() }

func (m *MainItem) SetProductIDs(ids []string) error { return m.Set("products", ids) }

func (m *MainItem) Notes() string { return m.notes.Value() }

func (m *MainItem) SetNotes(v string) error { return m.Set("notes", v) }
