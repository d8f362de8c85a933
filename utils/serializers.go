package utils

import (
	"time"

	"coachdesk_go/models"
)

// Compact representations used across APIs

type InstallmentDTO struct {
	Number int        `json:"number"`
	Amount int64      `json:"amount"`
	Status string     `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

type AdmissionDTO struct {
	ID            uint             `json:"id"`
	StudentID     string           `json:"student_id"`
	StudentName   string           `json:"student_name"`
	CourseName    string           `json:"course_name"`
	CourseFee     int64            `json:"course_fee"`
	Discount      int64            `json:"discount"`
	FinalFees     int64            `json:"final_fees"`
	PaymentPlan   string           `json:"payment_plan"`
	PaymentStatus string           `json:"payment_status"`
	Approved      bool             `json:"approved"`
	CreatedAt     time.Time        `json:"created_at"`
	Installments  []InstallmentDTO `json:"installments,omitempty"`
}

type PaymentDTO struct {
	ID                uint       `json:"id"`
	AdmissionID       uint       `json:"admission_id"`
	Amount            int64      `json:"amount"`
	Channel           string     `json:"channel"`
	Status            string     `json:"status"`
	PaymentMethod     string     `json:"payment_method,omitempty"`
	TransactionID     string     `json:"transaction_id,omitempty"`
	GatewayRef        string     `json:"gateway_ref,omitempty"`
	InstallmentNumber *int       `json:"installment_number,omitempty"`
	ReceiptNumber     string     `json:"receipt_number,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ReceiptDTO is the printable receipt view of one settled payment.
type ReceiptDTO struct {
	ReceiptNumber string     `json:"receipt_number"`
	StudentID     string     `json:"student_id"`
	StudentName   string     `json:"student_name"`
	CourseName    string     `json:"course_name"`
	Amount        int64      `json:"amount"`
	Channel       string     `json:"channel"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at"`
}

// ToAdmissionDTO maps an admission with its preloaded installments.
func ToAdmissionDTO(a models.Admission) AdmissionDTO {
	dto := AdmissionDTO{
		ID:            a.ID,
		StudentID:     a.StudentID,
		StudentName:   joinName(a.FirstName, a.LastName),
		CourseName:    a.CourseName,
		CourseFee:     a.CourseFee,
		Discount:      a.Discount,
		FinalFees:     a.FinalFees,
		PaymentPlan:   a.PaymentPlan,
		PaymentStatus: a.PaymentStatus,
		Approved:      a.Approved,
		CreatedAt:     a.CreatedAt,
	}
	for _, in := range a.Installments {
		dto.Installments = append(dto.Installments, InstallmentDTO{
			Number: in.Number,
			Amount: in.Amount,
			Status: in.Status,
			PaidAt: in.PaidAt,
		})
	}
	return dto
}

func ToPaymentDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                p.ID,
		AdmissionID:       p.AdmissionID,
		Amount:            p.Amount,
		Channel:           p.Channel,
		Status:            p.Status,
		PaymentMethod:     p.PaymentMethod,
		TransactionID:     p.TransactionID,
		GatewayRef:        p.GatewayRef,
		InstallmentNumber: p.InstallmentNumber,
		ReceiptNumber:     p.ReceiptNumber,
		PaidAt:            p.PaidAt,
		CreatedAt:         p.CreatedAt,
	}
}

// ToReceiptDTO maps a settled payment with its preloaded admission.
func ToReceiptDTO(p models.Payment) ReceiptDTO {
	return ReceiptDTO{
		ReceiptNumber: p.ReceiptNumber,
		StudentID:     p.Admission.StudentID,
		StudentName:   joinName(p.Admission.FirstName, p.Admission.LastName),
		CourseName:    p.Admission.CourseName,
		Amount:        p.Amount,
		Channel:       p.Channel,
		PaymentMethod: p.PaymentMethod,
		PaidAt:        p.PaidAt,
	}
}

func joinName(first, last string) string {
	if last == "" {
		return first
	}
	if first == "" {
		return last
	}
	return first + " " + last
}
