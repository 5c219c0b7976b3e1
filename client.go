package cloudbalance

// Client aggregates a client for every area of the CloudBalance API. All of
// them share one TokenSource, so every request carries whatever session token
// is current at the moment it is sent.
type Client interface {
	Auth() AuthClient
	Users() UsersClient
	CloudAccounts() CloudAccountsClient
	CostExplorer() CostExplorerClient
	AWSResources() AWSResourcesClient
}

type client struct {
	authClient          AuthClient
	usersClient         UsersClient
	cloudAccountsClient CloudAccountsClient
	costExplorerClient  CostExplorerClient
	awsResourcesClient  AWSResourcesClient
}

// NewClient returns a Client for the API rooted at apiAddress, e.g.
// "http://localhost:8080/api".
func NewClient(
	apiAddress string,
	tokens TokenSource,
	allowInsecure bool,
) Client {
	return &client{
		authClient:  NewAuthClient(apiAddress, tokens, allowInsecure),
		usersClient: NewUsersClient(apiAddress, tokens, allowInsecure),
		cloudAccountsClient: NewCloudAccountsClient(
			apiAddress,
			tokens,
			allowInsecure,
		),
		costExplorerClient: NewCostExplorerClient(
			apiAddress,
			tokens,
			allowInsecure,
		),
		awsResourcesClient: NewAWSResourcesClient(
			apiAddress,
			tokens,
			allowInsecure,
		),
	}
}

func (c *client) Auth() AuthClient {
	return c.authClient
}

func (c *client) Users() UsersClient {
	return c.usersClient
}

func (c *client) CloudAccounts() CloudAccountsClient {
	return c.cloudAccountsClient
}

func (c *client) CostExplorer() CostExplorerClient {
	return c.costExplorerClient
}

func (c *client) AWSResources() AWSResourcesClient {
	return c.awsResourcesClient
}
