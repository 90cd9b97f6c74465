package model

import "time"

type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	PasswordHash   string `json:"-"`
	OrganizationID int64  `json:"organization_id"`
	IsTender       bool   `json:"is_tender"`
	IsSuperuser    bool   `json:"is_superuser"`
	// IvaOverride marks users exempt from the certificate requirement.
	IvaOverride bool `json:"iva_override"`
	// CertificateApprovedAt is set once the user's IVA certificate has
	// been approved by a board member.
	CertificateApprovedAt *time.Time `json:"certificate_approved_at"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type PushSubscription struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	CreatedAt time.Time `json:"created_at"`
}
