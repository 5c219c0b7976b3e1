package cloudbalance

// CostFilter narrows and groups the cost data the API server aggregates.
// Every list is an allow-list; an empty list does not filter.
type CostFilter struct {
	StartDate         Date     `json:"startDate"`
	EndDate           Date     `json:"endDate"`
	GroupBy           string   `json:"groupBy,omitempty"`
	AccountIDs        []string `json:"accountIds,omitempty"`
	Services          []string `json:"services,omitempty"`
	InstanceTypes     []string `json:"instanceTypes,omitempty"`
	UsageTypes        []string `json:"usageTypes,omitempty"`
	UsageTypeGroups   []string `json:"usageTypeGroups,omitempty"`
	Platforms         []string `json:"platforms,omitempty"`
	Regions           []string `json:"regions,omitempty"`
	PurchaseOptions   []string `json:"purchaseOptions,omitempty"`
	APIOperations     []string `json:"apiOperations,omitempty"`
	Resources         []string `json:"resources,omitempty"`
	AvailabilityZones []string `json:"availabilityZones,omitempty"`
	Tenancies         []string `json:"tenancies,omitempty"`
	ChargeTypes       []string `json:"chargeTypes,omitempty"`
}

// CostGroup is one row of aggregated cost: a group key, its cost per time
// unit and its total.
type CostGroup struct {
	Key    string             `json:"key"`
	Values map[string]float64 `json:"values"`
	Total  float64            `json:"total"`
}

// CostReport is the API server's aggregation of cost data for a CostFilter.
type CostReport struct {
	Groups       []CostGroup        `json:"groups"`
	TimeUnits    []string           `json:"timeUnits"`
	Totals       map[string]float64 `json:"totals"`
	TotalRecords int                `json:"totalRecords"`
}
