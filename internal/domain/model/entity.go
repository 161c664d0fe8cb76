package model

import "time"

// Contact is a read-only snapshot of a CRM contact.
type Contact struct {
	ID         string   `json:"id"`
	ExternalID string   `json:"externalId"`
	TenantID   string   `json:"tenantId"`
	Name       string   `json:"name,omitempty"`
	Email      string   `json:"email,omitempty"`
	Phone      string   `json:"phone,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	UserID     string   `json:"userId,omitempty"`
}

// Project is a read-only snapshot of a pipeline opportunity.
type Project struct {
	ID                string   `json:"id"`
	ExternalID        string   `json:"externalId"`
	TenantID          string   `json:"tenantId"`
	Name              string   `json:"name,omitempty"`
	PipelineID        string   `json:"pipelineId,omitempty"`
	StageID           string   `json:"stageId,omitempty"`
	Status            string   `json:"status,omitempty"`
	MonetaryValue     *float64 `json:"monetaryValue,omitempty"`
	ContactExternalID string   `json:"contactExternalId,omitempty"`
	UserID            string   `json:"userId,omitempty"`
}

// Appointment is a read-only snapshot of a calendar booking.
type Appointment struct {
	ID                string     `json:"id"`
	ExternalID        string     `json:"externalId"`
	TenantID          string     `json:"tenantId"`
	Title             string     `json:"title,omitempty"`
	Status            string     `json:"status,omitempty"`
	StartsAt          *time.Time `json:"startsAt,omitempty"`
	ContactExternalID string     `json:"contactExternalId,omitempty"`
}

// Invoice is a read-only snapshot of an invoice.
type Invoice struct {
	ID                string   `json:"id"`
	ExternalID        string   `json:"externalId"`
	TenantID          string   `json:"tenantId"`
	Number            string   `json:"number,omitempty"`
	Status            string   `json:"status,omitempty"`
	Total             *float64 `json:"total,omitempty"`
	AmountPaid        *float64 `json:"amountPaid,omitempty"`
	ContactExternalID string   `json:"contactExternalId,omitempty"`
	ProjectExternalID string   `json:"projectExternalId,omitempty"`
}
