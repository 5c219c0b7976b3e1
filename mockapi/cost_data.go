package mockapi

import (
	"fmt"
	"sort"
	"time"

	"github.com/krancour/cloudbalance"
)

const costTimeUnitLayout = "2006-01"

// CostRecord is one line item of billing data.
type CostRecord struct {
	Date             time.Time
	AccountID        string
	Service          string
	InstanceType     string
	UsageType        string
	Platform         string
	Region           string
	UsageTypeGroup   string
	PurchaseOption   string
	APIOperation     string
	Resource         string
	AvailabilityZone string
	Tenancy          string
	ChargeType       string
	Cost             float64
}

// field returns the record's value for one of cloudbalance.CostFilterFields.
func (c CostRecord) field(name string) (string, bool) {
	switch name {
	case "Service":
		return c.Service, true
	case "InstanceType":
		return c.InstanceType, true
	case "AccountID":
		return c.AccountID, true
	case "UsageType":
		return c.UsageType, true
	case "Platform":
		return c.Platform, true
	case "Region":
		return c.Region, true
	case "UsageTypeGroup":
		return c.UsageTypeGroup, true
	case "PurchaseOption":
		return c.PurchaseOption, true
	case "ApiOperation":
		return c.APIOperation, true
	case "Resource":
		return c.Resource, true
	case "AvailabilityZone":
		return c.AvailabilityZone, true
	case "Tenancy":
		return c.Tenancy, true
	case "ChargeType":
		return c.ChargeType, true
	}
	return "", false
}

func filterLists(filter cloudbalance.CostFilter) map[string][]string {
	return map[string][]string{
		"AccountID":        filter.AccountIDs,
		"Service":          filter.Services,
		"InstanceType":     filter.InstanceTypes,
		"UsageType":        filter.UsageTypes,
		"UsageTypeGroup":   filter.UsageTypeGroups,
		"Platform":         filter.Platforms,
		"Region":           filter.Regions,
		"PurchaseOption":   filter.PurchaseOptions,
		"ApiOperation":     filter.APIOperations,
		"Resource":         filter.Resources,
		"AvailabilityZone": filter.AvailabilityZones,
		"Tenancy":          filter.Tenancies,
		"ChargeType":       filter.ChargeTypes,
	}
}

// AddCostRecords appends billing data.
func (s *Service) AddCostRecords(records ...CostRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costRecords = append(s.costRecords, records...)
}

// CostData aggregates the billing data the principal may see, grouped by the
// filter's group-by field and by month.
func (s *Service) CostData(
	p principal,
	filter cloudbalance.CostFilter,
) (cloudbalance.CostReport, error) {
	report := cloudbalance.CostReport{
		Groups:    []cloudbalance.CostGroup{},
		TimeUnits: []string{},
		Totals:    map[string]float64{},
	}
	if filter.StartDate.IsZero() || filter.EndDate.IsZero() {
		return report,
			cloudbalance.NewErrBadRequest("Start date and end date are required")
	}
	if filter.EndDate.Before(filter.StartDate.Time) {
		return report,
			cloudbalance.NewErrBadRequest("End date must not precede start date")
	}
	groupBy := filter.GroupBy
	if groupBy == "" {
		groupBy = "Service"
	}
	if _, ok := (CostRecord{}).field(groupBy); !ok {
		return report, cloudbalance.NewErrBadRequest(
			fmt.Sprintf("Invalid group by field: %s", groupBy),
		)
	}
	lists := filterLists(filter)
	end := filter.EndDate.AddDate(0, 0, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	accessible := s.accessibleAccountIDs(p.user)
	groups := map[string]*cloudbalance.CostGroup{}
	timeUnits := map[string]struct{}{}
	for _, record := range s.costRecords {
		if _, ok := accessible[record.AccountID]; !ok {
			continue
		}
		if record.Date.Before(filter.StartDate.Time) || !record.Date.Before(end) {
			continue
		}
		if !matches(record, lists) {
			continue
		}
		key, _ := record.field(groupBy)
		group, ok := groups[key]
		if !ok {
			group = &cloudbalance.CostGroup{
				Key:    key,
				Values: map[string]float64{},
			}
			groups[key] = group
		}
		timeUnit := record.Date.Format(costTimeUnitLayout)
		timeUnits[timeUnit] = struct{}{}
		group.Values[timeUnit] += record.Cost
		group.Total += record.Cost
		report.Totals[timeUnit] += record.Cost
		report.TotalRecords++
	}
	for timeUnit := range timeUnits {
		report.TimeUnits = append(report.TimeUnits, timeUnit)
	}
	sort.Strings(report.TimeUnits)
	for _, group := range groups {
		report.Groups = append(report.Groups, *group)
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		if report.Groups[i].Total == report.Groups[j].Total {
			return report.Groups[i].Key < report.Groups[j].Key
		}
		return report.Groups[i].Total > report.Groups[j].Total
	})
	return report, nil
}

// FilterValues lists the distinct values of a field across the billing data
// the principal may see.
func (s *Service) FilterValues(p principal, field string) ([]string, error) {
	if _, ok := (CostRecord{}).field(field); !ok {
		return nil, cloudbalance.NewErrBadRequest(
			fmt.Sprintf("Invalid field: %s", field),
		)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	accessible := s.accessibleAccountIDs(p.user)
	seen := map[string]struct{}{}
	values := []string{}
	for _, record := range s.costRecords {
		if _, ok := accessible[record.AccountID]; !ok {
			continue
		}
		value, _ := record.field(field)
		if _, ok := seen[value]; ok || value == "" {
			continue
		}
		seen[value] = struct{}{}
		values = append(values, value)
	}
	sort.Strings(values)
	return values, nil
}

// AvailableAccounts lists the AWS account IDs the principal may query cost
// data for.
func (s *Service) AvailableAccounts(p principal) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	accountIDs := []string{}
	for accountID := range s.accessibleAccountIDs(p.user) {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)
	return accountIDs
}

// accessibleAccountIDs must be called with the lock held.
func (s *Service) accessibleAccountIDs(
	user cloudbalance.User,
) map[string]struct{} {
	accountIDs := map[string]struct{}{}
	for _, account := range s.accounts {
		if account.IsActive() && s.canAccess(user, account.ID) {
			accountIDs[account.AccountID] = struct{}{}
		}
	}
	return accountIDs
}

func matches(record CostRecord, lists map[string][]string) bool {
	for field, allowed := range lists {
		if len(allowed) == 0 {
			continue
		}
		value, _ := record.field(field)
		found := false
		for _, a := range allowed {
			if a == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
