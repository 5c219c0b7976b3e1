package cloudbalance

// CloudAccount is an AWS account onboarded into CloudBalance.
type CloudAccount struct {
	ID          int64      `json:"id"`
	AccountID   string     `json:"accountId"`
	AccountName string     `json:"accountName"`
	ARN         string     `json:"arn"`
	Provider    string     `json:"provider"`
	Region      string     `json:"region"`
	Active      *bool      `json:"isActive,omitempty"`
	Created     *Timestamp `json:"createdAt,omitempty"`
}

// IsActive treats an unreported status as active, which is how the API server
// defaults new accounts.
func (c CloudAccount) IsActive() bool {
	return c.Active == nil || *c.Active
}

// CloudAccountCreate is the request body for onboarding a new account.
type CloudAccountCreate struct {
	AccountID   string `json:"accountId"`
	AccountName string `json:"accountName"`
	ARN         string `json:"arn,omitempty"`
	Provider    string `json:"provider"`
	Region      string `json:"region"`
	AccessKey   string `json:"accessKey,omitempty"`
	SecretKey   string `json:"secretKey,omitempty"`
	Active      *bool  `json:"isActive,omitempty"`
}

// CloudAccountUpdate is the request body for updating an onboarded account.
// Empty fields are left unchanged.
type CloudAccountUpdate struct {
	AccountName string `json:"accountName,omitempty"`
	ARN         string `json:"arn,omitempty"`
	Provider    string `json:"provider,omitempty"`
	Region      string `json:"region,omitempty"`
	AccessKey   string `json:"accessKey,omitempty"`
	SecretKey   string `json:"secretKey,omitempty"`
	Active      *bool  `json:"isActive,omitempty"`
}
