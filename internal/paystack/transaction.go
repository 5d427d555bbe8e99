package paystack

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rookgm/creditmart/internal/models"
)

// paystack transaction statuses
const (
	statusSuccess   = "success"
	approvalGateway = "Approval"
	eventChargeOK   = "charge.success"
)

// flexInt accepts both JSON numbers and numeric strings
type flexInt struct {
	Value *int64
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// not a number, metadata is advisory
		return nil
	}
	n := int64(v)
	f.Value = &n
	return nil
}

// flexString accepts both JSON strings and numbers
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func (f flexString) String() string {
	return string(f)
}

type metadata struct {
	ClientID      string  `json:"clientId"`
	ClientIDSnake string  `json:"client_id"`
	PackID        string  `json:"packId"`
	OrderID       string  `json:"orderId"`
	Reference     string  `json:"reference"`
	Credits       flexInt `json:"credits"`
	CreditsAmount flexInt `json:"credits_amount"`
}

// Transaction is a paystack transaction as seen in webhooks and verify responses
type Transaction struct {
	ID              flexString      `json:"id"`
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	GatewayResponse string          `json:"gateway_response"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Channel         string          `json:"channel"`
	RawMetadata     json.RawMessage `json:"metadata"`

	meta metadata
	raw  json.RawMessage
}

func parseTransaction(raw json.RawMessage) (*Transaction, error) {
	tx := Transaction{}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, err
	}
	// paystack sends metadata as object, string or empty string
	if len(tx.RawMetadata) > 0 && tx.RawMetadata[0] == '{' {
		_ = json.Unmarshal(tx.RawMetadata, &tx.meta)
	}
	tx.raw = raw
	return &tx, nil
}

// Succeeded reports whether transaction is a confirmed successful charge
func (t *Transaction) Succeeded() bool {
	return t.Status == statusSuccess || t.GatewayResponse == approvalGateway
}

// ResolvedReference returns reference of transaction or its metadata
func (t *Transaction) ResolvedReference() string {
	if t.Reference != "" {
		return t.Reference
	}
	if t.meta.Reference != "" {
		return t.meta.Reference
	}
	return t.ID.String()
}

// Metadata returns provider neutral correlation data
func (t *Transaction) Metadata() models.NotificationMetadata {
	md := models.NotificationMetadata{
		ClientID: t.meta.ClientID,
		PackID:   t.meta.PackID,
		OrderID:  t.meta.OrderID,
		Credits:  t.meta.Credits.Value,
	}
	if md.ClientID == "" {
		md.ClientID = t.meta.ClientIDSnake
	}
	if md.Credits == nil {
		md.Credits = t.meta.CreditsAmount.Value
	}
	return md
}

// Raw returns transaction document as received
func (t *Transaction) Raw() json.RawMessage {
	return t.raw
}
