package models

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Payment plan values
const (
	PlanFull        = "full"
	PlanInstallment = "installment"
)

// Aggregate payment status of an admission. Derived by the reconciliation
// engine only; never written directly by controllers.
const (
	PaymentStatusPending       = "pending"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusPaid          = "paid"
	PaymentStatusFailed        = "failed"
)

// Installment status values
const (
	InstallmentPending = "pending"
	InstallmentPaid    = "paid"
)

// Payment record status values
const (
	PaymentCreated         = "created"
	PaymentPendingApproval = "pending_approval"
	PaymentPaid            = "paid"
	PaymentFailed          = "failed"
)

// Intake channel values
const (
	ChannelGateway = "gateway"
	ChannelManual  = "manual"
	ChannelAdmin   = "admin"
)

// User model
type User struct {
	BaseModel
	Username             string     `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password             string     `json:"-" gorm:"size:255;not null"`
	Email                string     `json:"email" gorm:"size:255;uniqueIndex"`
	Phone                string     `json:"phone" gorm:"size:20"`
	Role                 string     `json:"role" gorm:"size:50;not null;default:'student';type:enum('owner','admin','teacher','student')"` // owner, admin, teacher, student
	Status               string     `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`    // active, inactive, suspended
	Avatar               string     `json:"avatar" gorm:"size:500"`
	PasswordResetToken   string     `json:"-" gorm:"size:255"`
	PasswordResetExpires *time.Time `json:"-"`

	// Relationships
	Teacher *Teacher `json:"teacher,omitempty" gorm:"foreignKey:UserID"`
}

// Teacher model (payroll subject)
type Teacher struct {
	BaseModel
	UserID          uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	FirstName       string `json:"first_name" gorm:"size:100"`
	LastName        string `json:"last_name" gorm:"size:100"`
	Nickname        string `json:"nickname" gorm:"size:100"`
	MonthlySalary   int64  `json:"monthly_salary"`
	Specializations string `json:"specializations" gorm:"type:text"`
	Active          bool   `json:"active" gorm:"default:true"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Course catalog entry. Fee is the list price in whole currency units; it is
// copied into the admission at creation time, never referenced live.
type Course struct {
	BaseModel
	Name        string `json:"name" gorm:"size:255;not null"`
	Code        string `json:"code" gorm:"size:100;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Level       string `json:"level" gorm:"size:100"`
	DurationWks int    `json:"duration_weeks"`
	Fee         int64  `json:"fee" gorm:"not null"`
	Status      string `json:"status" gorm:"size:50;default:'active';type:enum('active','inactive')"` // active, inactive
}

// Admission is one student's enrollment record and its fee obligation.
type Admission struct {
	BaseModel
	StudentID     string `json:"student_id" gorm:"size:50;not null;uniqueIndex"`
	UserID        *uint  `json:"user_id" gorm:"index"`
	CourseID      uint   `json:"course_id" gorm:"not null"`
	CourseName    string `json:"course_name" gorm:"size:255"` // snapshot at creation
	CourseFee     int64  `json:"course_fee" gorm:"not null"`  // snapshot at creation
	Discount      int64  `json:"discount" gorm:"not null;default:0"`
	FinalFees     int64  `json:"final_fees" gorm:"not null"`
	PaymentPlan   string `json:"payment_plan" gorm:"size:50;not null;default:'full';type:enum('full','installment')"`
	PaymentStatus string `json:"payment_status" gorm:"size:50;not null;default:'pending';type:enum('pending','partially_paid','paid','failed')"`
	Approved      bool   `json:"approved" gorm:"default:false"`

	// Intake fields
	FirstName     string `json:"first_name" gorm:"size:100"`
	LastName      string `json:"last_name" gorm:"size:100"`
	Email         string `json:"email" gorm:"size:255"`
	Phone         string `json:"phone" gorm:"size:20"`
	GuardianName  string `json:"guardian_name" gorm:"size:200"`
	GuardianPhone string `json:"guardian_phone" gorm:"size:20"`
	ContactSource string `json:"contact_source" gorm:"size:100"`

	// Relationships
	Course       Course        `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	User         *User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Installments []Installment `json:"installments,omitempty" gorm:"foreignKey:AdmissionID"`
	Payments     []Payment     `json:"payments,omitempty" gorm:"foreignKey:AdmissionID"`
}

// Installment is one scheduled partial-payment slot of an installment plan.
// Owned exclusively by its admission.
type Installment struct {
	BaseModel
	AdmissionID uint       `json:"admission_id" gorm:"not null;index:idx_admission_number,unique"`
	Number      int        `json:"number" gorm:"not null;index:idx_admission_number,unique"`
	Amount      int64      `json:"amount" gorm:"not null"`
	Status      string     `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','paid')"`
	PaidAt      *time.Time `json:"paid_at"`
	PaymentRef  *uint      `json:"payment_ref"` // weak back-reference to the satisfying Payment
}

// Payment is one payment attempt in the admission's ledger. Append-only:
// status transitions to paid or failed exactly once and never reverts.
type Payment struct {
	BaseModel
	AdmissionID       uint       `json:"admission_id" gorm:"not null;index"`
	Amount            int64      `json:"amount" gorm:"not null"`
	PaymentMethod     string     `json:"payment_method" gorm:"size:50"`
	Channel           string     `json:"channel" gorm:"size:50;not null;type:enum('gateway','manual','admin')"`
	Status            string     `json:"status" gorm:"size:50;not null;default:'created';type:enum('created','pending_approval','paid','failed')"`
	GatewaySessionID  *string    `json:"gateway_session_id" gorm:"size:100;uniqueIndex"`
	GatewayRef        string     `json:"gateway_ref" gorm:"size:255"` // processor transaction reference
	TransactionID     string     `json:"transaction_id" gorm:"size:255"`
	InstallmentNumber *int       `json:"installment_number"` // nil = applies to the admission as a whole
	PaidAt            *time.Time `json:"paid_at"`
	RecordedByID      *uint      `json:"recorded_by_id"`
	ReceiptNumber     string     `json:"receipt_number" gorm:"size:100"`
	Notes             string     `json:"notes" gorm:"type:text"`

	// Relationships
	Admission Admission `json:"admission,omitempty" gorm:"foreignKey:AdmissionID"`
}

// StudentIDSequence is the per-year counter behind student ID generation.
// Incremented under a row lock so concurrent enrollments never share an ID.
type StudentIDSequence struct {
	BaseModel
	Year    int `json:"year" gorm:"not null;uniqueIndex"`
	LastSeq int `json:"last_seq" gorm:"not null"`
}

// TeacherPayout records one monthly salary payout per teacher. The composite
// unique index makes duplicate payouts a conflict at the database level.
type TeacherPayout struct {
	BaseModel
	TeacherID uint       `json:"teacher_id" gorm:"not null;index:idx_teacher_month,unique"`
	Month     string     `json:"month" gorm:"size:7;not null;index:idx_teacher_month,unique"` // YYYY-MM
	Amount    int64      `json:"amount" gorm:"not null"`
	PaidAt    *time.Time `json:"paid_at"`
	Notes     string     `json:"notes" gorm:"type:text"`

	// Relationships
	Teacher Teacher `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
}

// Attendance marks one admission's presence for a session date.
type Attendance struct {
	BaseModel
	AdmissionID uint      `json:"admission_id" gorm:"not null;index:idx_admission_date,unique"`
	SessionDate time.Time `json:"session_date" gorm:"not null;index:idx_admission_date,unique"`
	Status      string    `json:"status" gorm:"size:50;not null;type:enum('present','absent','late')"` // present, absent, late
	MarkedByID  uint      `json:"marked_by_id"`
	Notes       string    `json:"notes" gorm:"type:text"`

	// Relationships
	Admission Admission `json:"admission,omitempty" gorm:"foreignKey:AdmissionID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"` // info, warning, error, success
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`
	Data    JSON       `json:"data,omitempty" gorm:"type:json"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// ReportArchive tracks fee-overview workbooks exported to S3
type ReportArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	PeriodStart time.Time `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time `json:"period_end" gorm:"not null"`
	RowCount    int       `json:"row_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"` // pending, completed, failed
	Error       string    `json:"error" gorm:"type:text"`
}
