package cloudbalance

// EC2Instance is an EC2 instance discovered in an onboarded account.
type EC2Instance struct {
	ResourceID   string `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	Region       string `json:"region"`
	Status       string `json:"status"`
}

// RDSInstance is an RDS database instance discovered in an onboarded account.
type RDSInstance struct {
	ResourceID   string `json:"resourceId"`
	ResourceName string `json:"resourceName"`
	Engine       string `json:"engine"`
	Region       string `json:"region"`
	Status       string `json:"status"`
}

// AutoScalingGroup is an EC2 auto scaling group discovered in an onboarded
// account.
type AutoScalingGroup struct {
	ResourceID      string `json:"resourceId"`
	ResourceName    string `json:"resourceName"`
	Region          string `json:"region"`
	Status          string `json:"status"`
	DesiredCapacity int    `json:"desiredCapacity"`
	MinSize         int    `json:"minSize"`
	MaxSize         int    `json:"maxSize"`
}
