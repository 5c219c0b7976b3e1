package mockapi

import (
	"time"

	"github.com/krancour/cloudbalance"
)

// Demo credentials. The administrator's come from Config.
const (
	DemoReadOnlyUsername = "readonly"
	DemoCustomerUsername = "customer"
	DemoPassword         = "password123"
)

func (s *Service) seedDemoData() error {
	accountIDs := make([]int64, 0, 3)
	awsAccountIDs := make([]string, 0, 3)
	for _, accountCreate := range []cloudbalance.CloudAccountCreate{
		{
			AccountID:   "123456789012",
			AccountName: "production",
			ARN:         "arn:aws:iam::123456789012:role/CloudBalance",
			Provider:    "AWS",
			Region:      "us-east-1",
		},
		{
			AccountID:   "234567890123",
			AccountName: "staging",
			ARN:         "arn:aws:iam::234567890123:role/CloudBalance",
			Provider:    "AWS",
			Region:      "us-west-2",
		},
		{
			AccountID:   "345678901234",
			AccountName: "sandbox",
			ARN:         "arn:aws:iam::345678901234:role/CloudBalance",
			Provider:    "AWS",
			Region:      "eu-west-1",
		},
	} {
		account, err := s.CreateAccount(accountCreate)
		if err != nil {
			return err
		}
		accountIDs = append(accountIDs, account.ID)
		awsAccountIDs = append(awsAccountIDs, account.AccountID)
	}
	for _, userCreate := range []cloudbalance.UserCreate{
		{
			Username:  DemoReadOnlyUsername,
			Password:  DemoPassword,
			FirstName: "Read",
			LastName:  "Only",
			Email:     "readonly@cloudbalance.local",
			Role:      cloudbalance.RoleReadOnly,
		},
		{
			Username:   DemoCustomerUsername,
			Password:   DemoPassword,
			FirstName:  "Casey",
			LastName:   "Customer",
			Email:      "customer@cloudbalance.local",
			Role:       cloudbalance.RoleCustomer,
			AccountIDs: accountIDs[:2],
		},
	} {
		if _, err := s.CreateUser(userCreate); err != nil {
			return err
		}
	}
	s.AddCostRecords(demoCostRecords(s.now(), awsAccountIDs)...)
	return nil
}

// demoCostRecords produces three months of line items ending with the month
// containing now.
func demoCostRecords(now time.Time, awsAccountIDs []string) []CostRecord {
	type lineItem struct {
		service        string
		instanceType   string
		usageType      string
		usageTypeGroup string
		cost           float64
	}
	lineItems := []lineItem{
		{"Amazon Elastic Compute Cloud", "m5.large", "BoxUsage:m5.large", "EC2: Running Hours", 412.50},
		{"Amazon Relational Database Service", "db.t3.medium", "InstanceUsage:db.t3.medium", "RDS: Running Hours", 198.25},
		{"Amazon Simple Storage Service", "", "TimedStorage-ByteHrs", "S3: Storage - Standard", 37.80},
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	records := []CostRecord{}
	for m := 2; m >= 0; m-- {
		month := monthStart.AddDate(0, -m, 0)
		for a, awsAccountID := range awsAccountIDs {
			for _, item := range lineItems {
				records = append(records, CostRecord{
					Date:             month,
					AccountID:        awsAccountID,
					Service:          item.service,
					InstanceType:     item.instanceType,
					UsageType:        item.usageType,
					Platform:         "Linux/UNIX",
					Region:           "us-east-1",
					UsageTypeGroup:   item.usageTypeGroup,
					PurchaseOption:   "On Demand",
					APIOperation:     "RunInstances",
					Resource:         item.service,
					AvailabilityZone: "us-east-1a",
					Tenancy:          "Shared",
					ChargeType:       "Usage",
					Cost:             item.cost * float64(a+1) * float64(3-m) / 3,
				})
			}
		}
	}
	return records
}
