package mockapi

import (
	"fmt"

	"github.com/krancour/cloudbalance"
)

type awsResources struct {
	ec2Instances      []cloudbalance.EC2Instance
	rdsInstances      []cloudbalance.RDSInstance
	autoScalingGroups []cloudbalance.AutoScalingGroup
}

// generateResources invents a small, stable inventory for an account.
func generateResources(account cloudbalance.CloudAccount) awsResources {
	suffix := account.AccountID
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return awsResources{
		ec2Instances: []cloudbalance.EC2Instance{
			{
				ResourceID:   fmt.Sprintf("i-%s0a1b2c3d", suffix),
				ResourceName: account.AccountName + "-web",
				Region:       account.Region,
				Status:       "running",
			},
			{
				ResourceID:   fmt.Sprintf("i-%s4e5f6a7b", suffix),
				ResourceName: account.AccountName + "-batch",
				Region:       account.Region,
				Status:       "stopped",
			},
		},
		rdsInstances: []cloudbalance.RDSInstance{
			{
				ResourceID:   fmt.Sprintf("db-%s", suffix),
				ResourceName: account.AccountName + "-db",
				Engine:       "postgres",
				Region:       account.Region,
				Status:       "available",
			},
		},
		autoScalingGroups: []cloudbalance.AutoScalingGroup{
			{
				ResourceID:      fmt.Sprintf("asg-%s", suffix),
				ResourceName:    account.AccountName + "-workers",
				Region:          account.Region,
				Status:          "InService",
				DesiredCapacity: 2,
				MinSize:         1,
				MaxSize:         4,
			},
		},
	}
}

func (s *Service) EC2Instances(
	p principal,
	accountID int64,
) ([]cloudbalance.EC2Instance, error) {
	resources, err := s.accountResources(p, accountID)
	return resources.ec2Instances, err
}

func (s *Service) RDSInstances(
	p principal,
	accountID int64,
) ([]cloudbalance.RDSInstance, error) {
	resources, err := s.accountResources(p, accountID)
	return resources.rdsInstances, err
}

func (s *Service) AutoScalingGroups(
	p principal,
	accountID int64,
) ([]cloudbalance.AutoScalingGroup, error) {
	resources, err := s.accountResources(p, accountID)
	return resources.autoScalingGroups, err
}

func (s *Service) accountResources(
	p principal,
	accountID int64,
) (awsResources, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, err := s.account(accountID)
	if err != nil {
		return awsResources{}, err
	}
	if !s.canAccess(p.user, accountID) {
		return awsResources{}, cloudbalance.NewErrAuthorization(msgAccessDenied)
	}
	if !account.IsActive() {
		return awsResources{},
			cloudbalance.NewErrBadRequest("Cloud account is not active")
	}
	return s.resources[accountID], nil
}
