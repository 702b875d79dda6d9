package amqp

import (
	"encoding/json"
	"time"
)

// ExchangeRateUpdateMessage carries a new rate for Currency against Base,
// published by whatever feeds the dashboard with market data.
type ExchangeRateUpdateMessage struct {
	Base      string    `json:"base"`
	Currency  string    `json:"currency"`
	Rate      string    `json:"rate"` // decimal string, units of Currency per unit of Base
	Timestamp time.Time `json:"timestamp"`
}

// DueReminderMessage announces an upcoming liability due date.
type DueReminderMessage struct {
	LiabilityID   string    `json:"liability_id"`
	Name          string    `json:"name"`
	Currency      string    `json:"currency"`
	Balance       string    `json:"balance"`
	StatementDate string    `json:"statement_date,omitempty"`
	DueDate       string    `json:"due_date"` // dd/mm/yyyy
	DaysLeft      int       `json:"days_left"`
	Timestamp     time.Time `json:"timestamp"`
}

func (m *ExchangeRateUpdateMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExchangeRateUpdateMessageFromJSON(data []byte) (*ExchangeRateUpdateMessage, error) {
	var msg ExchangeRateUpdateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (m *DueReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DueReminderMessageFromJSON(data []byte) (*DueReminderMessage, error) {
	var msg DueReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
