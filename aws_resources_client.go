package cloudbalance

import (
	"context"
	"fmt"
	"net/http"
)

// AWSResourcesClient lists resources the API server discovers in an onboarded
// account.
type AWSResourcesClient interface {
	EC2Instances(ctx context.Context, accountID int64) ([]EC2Instance, error)
	RDSInstances(ctx context.Context, accountID int64) ([]RDSInstance, error)
	AutoScalingGroups(
		ctx context.Context,
		accountID int64,
	) ([]AutoScalingGroup, error)
}

type awsResourcesClient struct {
	*baseClient
}

func NewAWSResourcesClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) AWSResourcesClient {
	return &awsResourcesClient{
		baseClient: newBaseClient(apiAddress, tokens, allowInsecure),
	}
}

func (a *awsResourcesClient) EC2Instances(
	ctx context.Context,
	accountID int64,
) ([]EC2Instance, error) {
	instances := []EC2Instance{}
	return instances, a.list(ctx, "ec2", accountID, &instances)
}

func (a *awsResourcesClient) RDSInstances(
	ctx context.Context,
	accountID int64,
) ([]RDSInstance, error) {
	instances := []RDSInstance{}
	return instances, a.list(ctx, "rds", accountID, &instances)
}

func (a *awsResourcesClient) AutoScalingGroups(
	ctx context.Context,
	accountID int64,
) ([]AutoScalingGroup, error) {
	groups := []AutoScalingGroup{}
	return groups, a.list(ctx, "asg", accountID, &groups)
}

func (a *awsResourcesClient) list(
	ctx context.Context,
	kind string,
	accountID int64,
	respObj interface{},
) error {
	if accountID < 1 {
		return NewErrValidation("an account ID is required")
	}
	return a.executeAPIRequest(
		ctx,
		apiRequest{
			method:  http.MethodGet,
			path:    fmt.Sprintf("aws-services/%s/%d", kind, accountID),
			respObj: respObj,
		},
	)
}
