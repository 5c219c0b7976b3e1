package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/krancour/cloudbalance"
	"github.com/krancour/cloudbalance/authz"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

var costCommand = &cli.Command{
	Name:  "cost",
	Usage: "Explore cost data",
	Subcommands: []*cli.Command{
		{
			Name:   "accounts",
			Usage:  "List the AWS accounts whose costs you can see",
			Flags:  []cli.Flag{cliFlagOutput},
			Action: costAccounts,
		},
		{
			Name:  "data",
			Usage: "Aggregate cost data by month",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  flagStart,
					Usage: "The first day to include, as YYYY-MM-DD; defaults to the first day of the month two months ago",
				},
				&cli.StringFlag{
					Name:  flagEnd,
					Usage: "The last day to include, as YYYY-MM-DD; defaults to today",
				},
				&cli.StringFlag{
					Name:    flagGroupBy,
					Aliases: []string{"g"},
					Usage:   "Group costs by the specified field",
					Value:   "Service",
				},
				&cli.StringSliceFlag{
					Name:    flagAccount,
					Aliases: []string{"a"},
					Usage:   "Only include the specified AWS account; may be repeated",
				},
				&cli.StringSliceFlag{
					Name:  flagService,
					Usage: "Only include the specified service; may be repeated",
				},
				&cli.StringSliceFlag{
					Name:  flagRegion,
					Usage: "Only include the specified region; may be repeated",
				},
				cliFlagOutput,
			},
			Action: costData,
		},
		{
			Name:      "filter-values",
			Usage:     "List the distinct values of a cost field",
			ArgsUsage: "FIELD",
			Flags:     []cli.Flag{cliFlagOutput},
			Action:    costFilterValues,
		},
	},
}

var awsCommand = &cli.Command{
	Name:  "aws",
	Usage: "Inspect resources discovered in an onboarded account",
	Subcommands: []*cli.Command{
		{
			Name:      "asg",
			Usage:     "List auto scaling groups",
			ArgsUsage: "ACCOUNT_ID",
			Flags:     []cli.Flag{cliFlagOutput},
			Action:    awsAutoScalingGroups,
		},
		{
			Name:      "ec2",
			Usage:     "List EC2 instances",
			ArgsUsage: "ACCOUNT_ID",
			Flags:     []cli.Flag{cliFlagOutput},
			Action:    awsEC2Instances,
		},
		{
			Name:      "rds",
			Usage:     "List RDS instances",
			ArgsUsage: "ACCOUNT_ID",
			Flags:     []cli.Flag{cliFlagOutput},
			Action:    awsRDSInstances,
		},
	},
}

// costFilter builds a filter from flags. Dates default to the three calendar
// months ending today.
func costFilter(c *cli.Context, now time.Time) (cloudbalance.CostFilter, error) {
	filter := cloudbalance.CostFilter{
		StartDate:  cloudbalance.NewDate(now.Year(), now.Month()-2, 1),
		EndDate:    cloudbalance.NewDate(now.Year(), now.Month(), now.Day()),
		GroupBy:    c.String(flagGroupBy),
		AccountIDs: c.StringSlice(flagAccount),
		Services:   c.StringSlice(flagService),
		Regions:    c.StringSlice(flagRegion),
	}
	var err error
	if start := c.String(flagStart); start != "" {
		if filter.StartDate, err = cloudbalance.ParseDate(start); err != nil {
			return filter, err
		}
	}
	if end := c.String(flagEnd); end != "" {
		if filter.EndDate, err = cloudbalance.ParseDate(end); err != nil {
			return filter, err
		}
	}
	return filter, nil
}

func costData(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	filter, err := costFilter(c, time.Now().UTC())
	if err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.CostExplorerPath)
	if err != nil {
		return err
	}

	report, err := client.CostExplorer().GetCostData(c.Context, filter)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	if len(report.Groups) == 0 {
		fmt.Println("No cost data found.")
		return nil
	}

	return printOutput(output, report, func(table *uitable.Table) {
		header := []interface{}{filter.GroupBy}
		for _, timeUnit := range report.TimeUnits {
			header = append(header, timeUnit)
		}
		table.AddRow(append(header, "TOTAL")...)
		var grandTotal float64
		for _, group := range report.Groups {
			row := []interface{}{group.Key}
			for _, timeUnit := range report.TimeUnits {
				row = append(row, money(group.Values[timeUnit]))
			}
			table.AddRow(append(row, money(group.Total))...)
			grandTotal += group.Total
		}
		totals := []interface{}{"TOTAL"}
		for _, timeUnit := range report.TimeUnits {
			totals = append(totals, money(report.Totals[timeUnit]))
		}
		table.AddRow(append(totals, money(grandTotal))...)
	})
}

func money(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

func costFilterValues(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}
	if c.Args().Len() != 1 {
		return errors.New("exactly one FIELD is required")
	}

	store, client, err := getAuthorizedSession(c, authz.CostExplorerPath)
	if err != nil {
		return err
	}

	values, err := client.CostExplorer().GetFilterValues(
		c.Context,
		c.Args().First(),
	)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	return printStrings(output, c.Args().First(), values)
}

func costAccounts(c *cli.Context) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.CostExplorerPath)
	if err != nil {
		return err
	}

	accounts, err := client.CostExplorer().GetAvailableAccounts(c.Context)
	if err != nil {
		return checkErr(c.Context, store, err)
	}

	return printStrings(output, "AWS ACCOUNT", accounts)
}

func printStrings(output string, header string, values []string) error {
	if len(values) == 0 {
		fmt.Println("No values found.")
		return nil
	}
	return printOutput(output, values, func(table *uitable.Table) {
		table.AddRow(header)
		for _, value := range values {
			table.AddRow(value)
		}
	})
}

func accountIDArg(c *cli.Context) (int64, error) {
	if c.Args().Len() != 1 {
		return 0, errors.New("exactly one ACCOUNT_ID is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil {
		return 0, errors.Errorf("invalid account ID %q", c.Args().First())
	}
	return id, nil
}

func awsEC2Instances(c *cli.Context) error {
	return listResources(
		c,
		func(
			client cloudbalance.AWSResourcesClient,
			accountID int64,
		) (interface{}, [][]interface{}, error) {
			instances, err := client.EC2Instances(c.Context, accountID)
			rows := [][]interface{}{{"ID", "NAME", "REGION", "STATUS"}}
			for _, i := range instances {
				rows = append(
					rows,
					[]interface{}{i.ResourceID, i.ResourceName, i.Region, i.Status},
				)
			}
			return instances, rows, err
		},
	)
}

func awsRDSInstances(c *cli.Context) error {
	return listResources(
		c,
		func(
			client cloudbalance.AWSResourcesClient,
			accountID int64,
		) (interface{}, [][]interface{}, error) {
			instances, err := client.RDSInstances(c.Context, accountID)
			rows := [][]interface{}{{"ID", "NAME", "ENGINE", "REGION", "STATUS"}}
			for _, i := range instances {
				rows = append(
					rows,
					[]interface{}{i.ResourceID, i.ResourceName, i.Engine, i.Region, i.Status},
				)
			}
			return instances, rows, err
		},
	)
}

func awsAutoScalingGroups(c *cli.Context) error {
	return listResources(
		c,
		func(
			client cloudbalance.AWSResourcesClient,
			accountID int64,
		) (interface{}, [][]interface{}, error) {
			groups, err := client.AutoScalingGroups(c.Context, accountID)
			rows := [][]interface{}{
				{"ID", "NAME", "REGION", "STATUS", "DESIRED", "MIN", "MAX"},
			}
			for _, g := range groups {
				rows = append(
					rows,
					[]interface{}{
						g.ResourceID,
						g.ResourceName,
						g.Region,
						g.Status,
						g.DesiredCapacity,
						g.MinSize,
						g.MaxSize,
					},
				)
			}
			return groups, rows, err
		},
	)
}

func listResources(
	c *cli.Context,
	list func(
		client cloudbalance.AWSResourcesClient,
		accountID int64,
	) (interface{}, [][]interface{}, error),
) error {
	output := c.String(flagOutput)

	if err := validateOutputFormat(output); err != nil {
		return err
	}
	accountID, err := accountIDArg(c)
	if err != nil {
		return err
	}

	store, client, err := getAuthorizedSession(c, authz.AWSServicesPath)
	if err != nil {
		return err
	}

	resources, rows, err := list(client.AWSResources(), accountID)
	if err != nil {
		return checkErr(c.Context, store, err)
	}
	if len(rows) == 1 {
		fmt.Println("No resources found.")
		return nil
	}

	return printOutput(output, resources, func(table *uitable.Table) {
		for _, row := range rows {
			table.AddRow(row...)
		}
	})
}
