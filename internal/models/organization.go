package models

import "time"

// Subscription tiers.
const (
	TierFree         = "free"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

// Organization represents a tenant stored in the 'organizations' table.
// QuotaUsed only moves through the conditional update inside job admission;
// quota_used <= quota_limit holds after every successful admission.
type Organization struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	APIKey        string    `db:"api_key" json:"-"`
	WebhookSecret string    `db:"webhook_secret" json:"-"` // HMAC key for webhook signatures
	Tier          string    `db:"tier" json:"tier"` // free, professional, enterprise
	QuotaLimit    int       `db:"quota_limit" json:"quota_limit"`
	QuotaUsed     int       `db:"quota_used" json:"quota_used"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// QuotaRemaining returns the number of admissions left in the period.
func (o *Organization) QuotaRemaining() int {
	remaining := o.QuotaLimit - o.QuotaUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
