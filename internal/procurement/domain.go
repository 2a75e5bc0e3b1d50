package procurement

import (
	"errors"
	"time"
)

// Company is a supplier organisation owning zero or more resources.
type Company struct {
	ID        int64
	Name      string
	Address   string
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Resource is a raw-material or equipment line belonging to one company.
type Resource struct {
	ID          int64
	Name        string
	Type        string
	Quantity    int64
	Unit        string
	CostPerUnit float64
	CompanyID   int64
	CompanyName string
	CreatedAt   time.Time
}

// RequestStatus enumerates resource request lifecycle states.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestApproved  RequestStatus = "approved"
	RequestRejected  RequestStatus = "rejected"
	RequestPurchased RequestStatus = "purchased"
	RequestDelivered RequestStatus = "delivered"
)

// requestTransitions holds the forward-only edges of the request state
// machine. Rejection is terminal and reachable only from pending.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestApproved, RequestRejected},
	RequestApproved:  {RequestPurchased},
	RequestPurchased: {RequestDelivered},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ResourceRequest is the cross-role procurement workflow object. The
// resource link is an optional foreign key resolved at create time; the
// literal requested name is always retained for display.
type ResourceRequest struct {
	ID           int64
	ResourceName string
	ResourceID   *int64
	Quantity     int64
	Priority     string
	Status       RequestStatus
	RequestedBy  string
	CreatedAt    time.Time
}

var (
	ErrNotFound          = errors.New("procurement: not found")
	ErrDuplicate         = errors.New("procurement: already exists")
	ErrValidation        = errors.New("procurement: validation failed")
	ErrInvalidTransition = errors.New("procurement: invalid status transition")
	ErrForbidden         = errors.New("procurement: operation not permitted for role")
)
