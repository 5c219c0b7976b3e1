package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ghodss/yaml"
	"github.com/gosuri/uitable"
	"github.com/krancour/cloudbalance"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/duration"
)

func validateOutputFormat(output string) error {
	switch strings.ToLower(output) {
	case "table", "yaml", "json":
		return nil
	}
	return errors.Errorf(
		"unrecognized output format %q; supported formats: table, yaml, json",
		output,
	)
}

// printOutput prints obj as YAML or JSON, or as the table that addRows
// builds.
func printOutput(
	output string,
	obj interface{},
	addRows func(*uitable.Table),
) error {
	switch strings.ToLower(output) {
	case "table":
		table := uitable.New()
		addRows(table)
		fmt.Println(table)
	case "yaml":
		yamlBytes, err := yaml.Marshal(obj)
		if err != nil {
			return errors.Wrap(err, "error formatting output")
		}
		fmt.Println(string(yamlBytes))
	case "json":
		prettyJSON, err := json.MarshalIndent(obj, "", "  ")
		if err != nil {
			return errors.Wrap(err, "error formatting output")
		}
		fmt.Println(string(prettyJSON))
	}
	return nil
}

func age(t *cloudbalance.Timestamp) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return duration.ShortHumanDuration(time.Since(t.Time))
}
