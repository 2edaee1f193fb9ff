package ordergateway

import "time"

type SubmissionStatus string

const (
	SubmissionStatusPending   SubmissionStatus = "pending"
	SubmissionStatusSubmitted SubmissionStatus = "submitted"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)

// OrderSubmission is the durable record of one confirmed checkout on its way
// to the order API. It is keyed by the session uid so that a redelivered
// confirmation event maps onto the same submission.
type OrderSubmission struct {
	OrderUID      string           `json:"orderId"`
	SessionUID    string           `json:"sessionId"`
	StoreUID      string           `json:"storeId"`
	CustomerUID   string           `json:"customerId,omitempty"`
	IsGuest       bool             `json:"isGuest"`
	CustomerName  string           `json:"customerName"`
	CustomerPhone string           `json:"customerPhone"`
	CustomerEmail string           `json:"customerEmail,omitempty"`
	PostalCode    string           `json:"postalCode"`
	Street        string           `json:"street"`
	Number        string           `json:"number"`
	Complement    string           `json:"complement,omitempty"`
	District      string           `json:"district"`
	City          string           `json:"city"`
	State         string           `json:"state"`
	PaymentMethod string           `json:"paymentMethod"`
	Status        SubmissionStatus `json:"status"`
	Attempts      int              `json:"attempts"`
	LastError     string           `json:"lastError,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	LastModified  *time.Time       `json:"lastModified,omitempty"`
}
