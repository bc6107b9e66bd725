/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger records from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

MONEY:
  Amounts are rendered as strings with two decimals ("50.00") so clients
  never round-trip them through a float.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/settlement"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// =============================================================================
// SETTLEMENTS
// =============================================================================

// GenerateRemittancesResponse is returned by the bulk generation endpoint.
type GenerateRemittancesResponse struct {
	Status    string `json:"status"`
	Generated int    `json:"generated"`
	Failed    int    `json:"failed"`
}

// WorkLogEntryDTO is one row of the work-log listing.
type WorkLogEntryDTO struct {
	WorkLogID        string `json:"worklog_id"`
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	RemittanceStatus string `json:"remittance_status"`
}

type WorkLogListResponse struct {
	Data  []WorkLogEntryDTO `json:"data"`
	Count int               `json:"count"`
}

func toWorkLogEntryDTO(e settlement.WorkLogEntry) WorkLogEntryDTO {
	return WorkLogEntryDTO{
		WorkLogID:        string(e.WorkLogID),
		UserID:           string(e.UserID),
		Amount:           money(e.Payable),
		RemittanceStatus: string(e.Status),
	}
}

// WorkLogDetailDTO adds the earned/remitted breakdown to a listing row.
type WorkLogDetailDTO struct {
	WorkLogEntryDTO
	Earned   string `json:"earned"`
	Remitted string `json:"remitted"`
}

// =============================================================================
// LEDGER MAINTENANCE
// =============================================================================

type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	CreatedAt string `json:"created_at,omitempty"`
}

type CreateUserRequest struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type WorkLogDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
}

type CreateWorkLogRequest struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id"`
}

type TimeSegmentDTO struct {
	ID        string `json:"id"`
	WorkLogID string `json:"worklog_id"`
	Minutes   int    `json:"minutes"`
	Earned    string `json:"earned"`
	CreatedAt string `json:"created_at"`
}

type AddTimeSegmentRequest struct {
	Minutes *int `json:"minutes"`
}

type AdjustmentDTO struct {
	ID        string `json:"id"`
	WorkLogID string `json:"worklog_id"`
	Amount    string `json:"amount"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AddAdjustmentRequest accepts the amount as a JSON string or number.
type AddAdjustmentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

type RemittanceItemDTO struct {
	ID        string `json:"id"`
	WorkLogID string `json:"worklog_id"`
	Amount    string `json:"amount"`
}

type RemittanceDTO struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	PeriodStart string              `json:"period_start"`
	PeriodEnd   string              `json:"period_end"`
	Status      string              `json:"status"`
	CreatedAt   string              `json:"created_at"`
	Items       []RemittanceItemDTO `json:"items,omitempty"`
}

func toRemittanceDTO(r ledger.Remittance, items []ledger.RemittanceItem) RemittanceDTO {
	dto := RemittanceDTO{
		ID:          string(r.ID),
		UserID:      string(r.UserID),
		PeriodStart: r.PeriodStart.Format("2006-01-02"),
		PeriodEnd:   r.PeriodEnd.Format("2006-01-02"),
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, RemittanceItemDTO{
			ID:        string(item.ID),
			WorkLogID: string(item.WorkLogID),
			Amount:    money(item.Amount),
		})
	}
	return dto
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
